package cli

import (
	"context"
	"fmt"
	"io"
	"os/signal"
	"syscall"

	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/spf13/cobra"

	"github.com/drblury/resourcewatch/internal/runtime/codec"
	loggingpkg "github.com/drblury/resourcewatch/internal/runtime/logging"
	"github.com/drblury/resourcewatch/internal/runtime/sink"
	transportpkg "github.com/drblury/resourcewatch/internal/runtime/transport"
	"github.com/drblury/resourcewatch/transport"
)

var (
	tailReplay bool
	tailLimit  int
	tailFormat string
)

func init() {
	rootCmd.AddCommand(tailCmd)
	tailCmd.Flags().BoolVar(&tailReplay, "replay", false, "Print the archived batches and exit (io and sqlite transports)")
	tailCmd.Flags().IntVarP(&tailLimit, "limit", "n", 0, "Stop after this many batches (0 means no limit)")
	tailCmd.Flags().StringVarP(&tailFormat, "format", "f", "text", "Output format (text|json)")
}

var tailCmd = &cobra.Command{
	Use:   "tail",
	Short: "Print batches published on the configured transport",
	Long:  "Subscribes to the configured topic and prints every decoded batch. With --replay the\narchive of a replayable transport is printed instead.",
	Args:  cobra.NoArgs,
	RunE:  runTail,
}

func runTail(cmd *cobra.Command, args []string) error {
	if tailFormat != "text" && tailFormat != "json" {
		return fmt.Errorf("invalid --format %q: expected text or json", tailFormat)
	}

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return err
	}
	log, err := newLogger(cmd, cfg)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	tr, err := transportpkg.DefaultFactory().Build(ctx, cfg, loggingpkg.NewWatermillAdapter(log))
	if err != nil {
		return err
	}
	defer func() { _ = tr.Close() }()

	out := cmd.OutOrStdout()
	if tailReplay {
		replayer := findReplayer(tr)
		if replayer == nil {
			return fmt.Errorf("transport %q cannot replay its archive", cfg.PubSubSystem)
		}
		messages, err := replayer.Replay(ctx, cfg.Topic)
		if err != nil {
			return fmt.Errorf("replay %s: %w", cfg.Topic, err)
		}
		for i, msg := range messages {
			if tailLimit > 0 && i >= tailLimit {
				break
			}
			if err := printMessage(out, msg, tailFormat); err != nil {
				return err
			}
		}
		return nil
	}

	if tr.Subscriber == nil {
		return fmt.Errorf("transport %q has no subscriber", cfg.PubSubSystem)
	}
	return follow(ctx, tr.Subscriber, cfg.Topic, out, log)
}

func findReplayer(tr transportpkg.Transport) transport.Replayer {
	if r, ok := tr.Publisher.(transport.Replayer); ok {
		return r
	}
	if r, ok := tr.Subscriber.(transport.Replayer); ok {
		return r
	}
	return nil
}

func follow(ctx context.Context, sub message.Subscriber, topic string, out io.Writer, log loggingpkg.ServiceLogger) error {
	messages, err := sub.Subscribe(ctx, topic)
	if err != nil {
		return fmt.Errorf("subscribe %s: %w", topic, err)
	}

	printed := 0
	for {
		select {
		case <-ctx.Done():
			return nil
		case msg, ok := <-messages:
			if !ok {
				return nil
			}
			if err := printMessage(out, msg, tailFormat); err != nil {
				log.Error("Failed to decode batch", err, loggingpkg.LogFields{"message_uuid": msg.UUID})
			}
			msg.Ack()
			printed++
			if tailLimit > 0 && printed >= tailLimit {
				return nil
			}
		}
	}
}

type batchView struct {
	TargetID      string `json:"targetId"`
	TargetKind    string `json:"targetKind"`
	Phase         string `json:"phase"`
	Sequence      int    `json:"sequence"`
	CorrelationID string `json:"correlationId"`
	Resources     any    `json:"resources"`
}

func printMessage(w io.Writer, msg *message.Message, format string) error {
	decoded, err := sink.Decode(msg)
	if err != nil {
		return err
	}

	if format == "json" {
		out, err := codec.JSON.Marshal(batchView{
			TargetID:      decoded.Batch.TargetID,
			TargetKind:    decoded.Batch.TargetKind.String(),
			Phase:         string(decoded.Batch.Phase),
			Sequence:      decoded.Sequence,
			CorrelationID: decoded.CorrelationID,
			Resources:     decoded.Batch.Resources,
		})
		if err != nil {
			return err
		}
		_, err = fmt.Fprintln(w, string(out))
		return err
	}

	for _, res := range decoded.Batch.Resources {
		rec := res.Message
		location := ""
		if rec.Filename != "" {
			location = fmt.Sprintf(" %s:%d", rec.Filename, rec.LineNumber)
		}
		if _, err := fmt.Fprintf(w, "%s #%d %s [%s]%s %s\n",
			decoded.Batch.Phase, decoded.Sequence, decoded.Batch.TargetID,
			rec.Level, location, summarize(rec.Arguments)); err != nil {
			return err
		}
	}
	return nil
}
