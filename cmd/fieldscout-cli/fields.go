package main

import (
	"fmt"
	"sort"
	"strings"

	"github.com/spf13/cobra"

	"github.com/use-agent/fieldscout/extract"
	"github.com/use-agent/fieldscout/fields"
	"github.com/use-agent/fieldscout/llm"
)

var fieldsCmd = &cobra.Command{
	Use:   "fields PROMPT",
	Short: "Show the fields a prompt resolves to",
	Long: `Interpret PROMPT the way a crawl would and print the resulting fields,
with the vocabulary keywords that selected each one. No page is loaded.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		vocab, err := extract.LoadVocabulary(cfg.Extract.VocabularyFile)
		if err != nil {
			return err
		}
		completer, err := llm.New(cfg.LLM)
		if err != nil {
			return err
		}
		var interp fields.Interpreter
		if completer != nil {
			interp = &fields.LLMInterpreter{LLM: completer}
		}
		p := fields.NewParser(interp, vocab)

		fs := p.Parse(cmd.Context(), args[0])
		fmt.Println("fields:", strings.Join(fs.Strings(), ", "))

		hits := p.Explain(args[0])
		names := make([]string, 0, len(hits))
		for name := range hits {
			names = append(names, name)
		}
		sort.Strings(names)
		for _, name := range names {
			fmt.Printf("  %-8s <- %s\n", name, strings.Join(hits[name], ", "))
		}
		return nil
	},
}
