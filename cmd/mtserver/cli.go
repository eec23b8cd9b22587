package main

import (
	"bufio"
	"bytes"
	"encoding/json"
	"fmt"
	"net"
	"net/http"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"github.com/nmtkit/go-constrained/server"
	"github.com/nmtkit/go-constrained/subword"
)

// NewCLI builds the mtserver command tree.
func NewCLI() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "mtserver",
		Short: "Constrained machine-translation pipeline server",
		CompletionOptions: cobra.CompletionOptions{
			DisableDefaultCmd: true,
		},
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			cmd.SilenceUsage = true
		},
	}

	cobra.EnableCommandSorting = false
	rootCmd.AddCommand(newServeCmd(), newSegmentCmd(), newTranslateCmd())
	return rootCmd
}

func newServeCmd() *cobra.Command {
	var configPath string
	cmd := &cobra.Command{
		Use:     "serve",
		Aliases: []string{"start"},
		Short:   "Start the translation server",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := LoadConfig(configPath)
			if err != nil {
				return err
			}
			engine, err := buildEngine(cfg)
			if err != nil {
				return err
			}
			ln, err := net.Listen("tcp", cfg.Listen)
			if err != nil {
				return errors.Wrapf(err, "listening on %q", cfg.Listen)
			}
			return server.Serve(ln, engine)
		},
	}
	cmd.Flags().StringVarP(&configPath, "config", "c", "mtserver.yaml", "Server configuration file")
	return cmd
}

func newSegmentCmd() *cobra.Command {
	var codesPath, separator string
	cmd := &cobra.Command{
		Use:   "segment",
		Short: "BPE-segment stdin, one sentence per line",
		RunE: func(cmd *cobra.Command, args []string) error {
			table, err := subword.TableFromFile(codesPath)
			if err != nil {
				return err
			}
			seg := subword.NewSegmenter(table, subword.WithSeparator(separator))
			scanner := bufio.NewScanner(cmd.InOrStdin())
			out := cmd.OutOrStdout()
			for scanner.Scan() {
				fmt.Fprintln(out, seg.SegmentSentence(scanner.Text()))
			}
			return scanner.Err()
		},
	}
	cmd.Flags().StringVar(&codesPath, "codes", "", "BPE merge-table file")
	cmd.Flags().StringVar(&separator, "separator", subword.DefaultSeparator, "Subword continuation separator")
	_ = cmd.MarkFlagRequired("codes")
	return cmd
}

func newTranslateCmd() *cobra.Command {
	var serverURL, sourceLang, targetLang string
	var constraints []string
	var nBest int
	cmd := &cobra.Command{
		Use:   "translate [sentence]",
		Short: "Translate a sentence via a running server",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			resp, err := requestTranslation(serverURL, server.TranslateRequest{
				SourceLang:        sourceLang,
				TargetLang:        targetLang,
				SourceSentence:    strings.Join(args, " "),
				TargetConstraints: constraints,
				NBest:             nBest,
			})
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			for _, tr := range resp.Translations {
				fmt.Fprintln(out, highlightSpans(tr.Text, tr.Spans))
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&serverURL, "server", "http://127.0.0.1:5007", "Server base URL")
	cmd.Flags().StringVarP(&sourceLang, "from", "f", "", "Source language code")
	cmd.Flags().StringVarP(&targetLang, "to", "t", "", "Target language code")
	cmd.Flags().StringArrayVar(&constraints, "constraint", nil, "Target phrase the output must contain (repeatable)")
	cmd.Flags().IntVarP(&nBest, "n-best", "n", 1, "Number of ranked translations")
	_ = cmd.MarkFlagRequired("from")
	_ = cmd.MarkFlagRequired("to")
	return cmd
}

func requestTranslation(baseURL string, req server.TranslateRequest) (*server.TranslateResponse, error) {
	payload, err := json.Marshal(req)
	if err != nil {
		return nil, errors.Wrap(err, "encoding translate request")
	}
	httpResp, err := http.Post(baseURL+"/translate", "application/json", bytes.NewReader(payload))
	if err != nil {
		return nil, errors.Wrapf(err, "calling %s", baseURL)
	}
	defer httpResp.Body.Close()
	if httpResp.StatusCode != http.StatusOK {
		return nil, errors.Errorf("server answered %s", httpResp.Status)
	}
	var resp server.TranslateResponse
	if err := json.NewDecoder(httpResp.Body).Decode(&resp); err != nil {
		return nil, errors.Wrap(err, "decoding translate response")
	}
	return &resp, nil
}

var constraintStyle = lipgloss.NewStyle().
	Foreground(lipgloss.Color("0")).
	Background(lipgloss.Color("11"))

// highlightSpans renders the constrained ranges of text with the constraint
// style. Spans are [start, end) rune offsets and never overlap.
func highlightSpans(text string, spans [][2]int) string {
	runes := []rune(text)
	var b strings.Builder
	last := 0
	for _, span := range spans {
		start, end := span[0], span[1]
		if start < last || end > len(runes) {
			continue
		}
		b.WriteString(string(runes[last:start]))
		b.WriteString(constraintStyle.Render(string(runes[start:end])))
		last = end
	}
	b.WriteString(string(runes[last:]))
	return b.String()
}
