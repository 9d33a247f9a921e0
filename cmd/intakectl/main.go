// Command intakectl is a terminal client for the intake server.
package main

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/autonomia2025/autonomia-suite-landing/internal/domain"
	"github.com/autonomia2025/autonomia-suite-landing/internal/protocol"
)

var (
	serverAddr string

	rootCmd = &cobra.Command{
		Use:   "intakectl",
		Short: "Terminal client for the conversational intake server",
	}

	chatCmd = &cobra.Command{
		Use:   "chat",
		Short: "Open a session and chat from stdin while streaming its events",
		Args:  cobra.NoArgs,
		RunE:  runChat,
	}

	watchCmd = &cobra.Command{
		Use:   "watch [session-id]",
		Short: "Stream the push events of an existing session",
		Args:  cobra.ExactArgs(1),
		RunE:  runWatch,
	}

	showCmd = &cobra.Command{
		Use:   "show [session-id]",
		Short: "Print the current state of a session",
		Args:  cobra.ExactArgs(1),
		RunE:  runShow,
	}
)

func init() {
	rootCmd.PersistentFlags().StringVar(&serverAddr, "server", "http://localhost:8080", "intake server base URL")
	rootCmd.AddCommand(chatCmd, watchCmd, showCmd)
}

func main() {
	log.SetFlags(log.Ltime)
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func signalContext(cmd *cobra.Command) (context.Context, context.CancelFunc) {
	return signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
}

func runChat(cmd *cobra.Command, _ []string) error {
	ctx, stop := signalContext(cmd)
	defer stop()

	client := NewClient(serverAddr)
	opened, err := client.OpenSession(ctx)
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Session %s opened\n", opened.SessionID)

	go func() {
		if err := client.Subscribe(ctx, opened.SessionID, printEvent(cmd)); err != nil {
			log.Printf("Event stream closed: %v", err)
		}
	}()

	// The first turn has no input and yields the greeting.
	resp, err := client.Chat(ctx, opened.SessionID, "")
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "< %s\n", resp.Reply)

	scanner := bufio.NewScanner(cmd.InOrStdin())
	fmt.Fprint(cmd.OutOrStdout(), "> ")
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "/quit" {
			break
		}

		resp, err := client.Chat(ctx, opened.SessionID, line)
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "< %s\n", resp.Reply)
		if resp.Step == domain.StepDone {
			fmt.Fprintln(cmd.OutOrStdout(), "Conversation finished.")
			break
		}
		fmt.Fprint(cmd.OutOrStdout(), "> ")
	}
	return scanner.Err()
}

func runWatch(cmd *cobra.Command, args []string) error {
	ctx, stop := signalContext(cmd)
	defer stop()
	return NewClient(serverAddr).Subscribe(ctx, args[0], printEvent(cmd))
}

func runShow(cmd *cobra.Command, args []string) error {
	view, err := NewClient(serverAddr).GetSession(cmd.Context(), args[0])
	if err != nil {
		return err
	}
	formatted, _ := json.MarshalIndent(view, "", "  ")
	fmt.Fprintln(cmd.OutOrStdout(), string(formatted))
	return nil
}

func printEvent(cmd *cobra.Command) func(protocol.RawEvent) {
	return func(ev protocol.RawEvent) {
		data := string(ev.Data)
		if data == "" {
			data = "{}"
		}
		fmt.Fprintf(cmd.ErrOrStderr(), "\n[%s] %s\n", ev.Type, data)
	}
}
