package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"

	"doqulio-chat/pkg/events"
	pktNats "doqulio-chat/pkg/nats"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

var tailCmd = &cobra.Command{
	Use:   "tail",
	Short: "Print chat events as the server mirrors them to NATS",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
		defer stop()

		sub, err := pktNats.NewSubscriber(natsURL)
		if err != nil {
			return err
		}
		defer sub.Close()

		out := cmd.OutOrStdout()
		filter := cmd.Flags().Changed("user")
		err = sub.Subscribe(ctx, pktNats.SubjectPrefix+"chat.>", "", func(_ context.Context, ev events.Event) error {
			if filter {
				if be, ok := ev.(events.BaseEvent); ok && be.UserID() != userID {
					return nil
				}
			}
			printEvent(out, ev)
			return nil
		})
		if err != nil {
			return err
		}

		<-ctx.Done()
		return nil
	},
}

var eventColors = map[string]*color.Color{
	"MESSAGE_APPENDED": color.New(color.FgGreen),
	"ERROR_CHANGED":    color.New(color.FgRed),
	"BUSY_CHANGED":     color.New(color.FgYellow),
}

func printEvent(w io.Writer, ev events.Event) {
	kind := strings.TrimPrefix(ev.EventType(), "chat.")
	c, ok := eventColors[kind]
	if !ok {
		c = color.New(color.FgCyan)
	}

	p := ev.Payload()
	c.Fprintf(w, "%s %-17s", ev.Timestamp().Format("15:04:05.000"), kind)
	fmt.Fprintf(w, " user=%v session=%v", p["user_id"], p["chat_session_id"])
	switch kind {
	case "MESSAGE_APPENDED":
		fmt.Fprintf(w, " %v: %v", p["role"], p["content"])
	case "BUSY_CHANGED":
		fmt.Fprintf(w, " busy=%v", p["busy"])
	case "ERROR_CHANGED":
		fmt.Fprintf(w, " error=%q", p["last_error"])
	case "LANGUAGE_CHANGED":
		fmt.Fprintf(w, " language=%v", p["target_language"])
	}
	fmt.Fprintln(w)
}
