package cli

import (
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"dormguide/internal/log"
	"dormguide/internal/service"
	"dormguide/internal/tui"
)

var (
	askExpand  bool
	askSession string
)

var askCmd = &cobra.Command{
	Use:   "ask [question]",
	Short: "Ask one question and print the answer",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runAsk,
}

var chatCmd = &cobra.Command{
	Use:   "chat",
	Short: "Start an interactive chat in the terminal",
	Args:  cobra.NoArgs,
	RunE:  runChat,
}

func init() {
	askCmd.Flags().BoolVarP(&askExpand, "expand", "e", false, "print the full answer instead of the short form")
	askCmd.Flags().StringVar(&askSession, "session", "", "continue an existing session id")
	rootCmd.AddCommand(askCmd)
	rootCmd.AddCommand(chatCmd)
}

func runAsk(cmd *cobra.Command, args []string) error {
	cfg, err := currentConfig()
	if err != nil {
		return err
	}
	a, err := newApp(cfg, true)
	if err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(cmd.Context(), time.Duration(cfg.LLM.TimeoutSecs*(cfg.LLM.MaxRetries+1)+10)*time.Second)
	defer cancel()

	resp, err := a.guide.Ask(ctx, service.AskRequest{
		Question:  strings.Join(args, " "),
		SessionID: askSession,
		Expand:    askExpand,
	})
	if err != nil {
		return err
	}
	out := cmd.OutOrStdout()
	fmt.Fprintln(out, resp.Answer)
	if len(resp.Sources) > 0 {
		fmt.Fprintf(out, "\nSources: %s\n", strings.Join(resp.Sources, "; "))
	}
	fmt.Fprintf(out, "Session: %s\n", resp.SessionID)
	return nil
}

func runChat(cmd *cobra.Command, _ []string) error {
	cfg, err := currentConfig()
	if err != nil {
		return err
	}
	// logs would draw over the terminal UI
	log.InitWithWriter(&cfg.Log, io.Discard)

	a, err := newApp(cfg, true)
	if err != nil {
		return err
	}
	if err := a.manager.EnsureReady(); err != nil {
		return fmt.Errorf("index not ready: %w", err)
	}
	st := a.guide.Status()
	subtitle := fmt.Sprintf("%d documents indexed from %s", st.Documents, cfg.Corpus.DocsDir)
	if st.Documents == 0 {
		subtitle = "No documents indexed; answers will not cite sources."
	}

	m := tui.New(a.guide, subtitle)
	_, err = tea.NewProgram(m, tea.WithAltScreen()).Run()
	return err
}
