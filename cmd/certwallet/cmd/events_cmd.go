package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"

	"certwallet/internal/platform/kafka/consumer"
	"certwallet/internal/wallet/events"
)

type tailFlags struct {
	group     string
	fromStart bool
}

func newEventsCommand(root *rootFlags) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "events",
		Short: "import event stream",
	}
	cmd.AddCommand(newEventsTailCommand(root))
	return cmd
}

func newEventsTailCommand(root *rootFlags) *cobra.Command {
	flags := &tailFlags{}

	cmd := &cobra.Command{
		Use:   "tail",
		Short: "prints import events from the configured topic until interrupted",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, log, err := root.load(cmd)
			if err != nil {
				return err
			}
			if cfg.Kafka.Brokers == "" {
				return errors.New("kafka.brokers is not configured")
			}

			reset := "latest"
			if flags.fromStart {
				reset = "earliest"
			}
			c, err := consumer.New(consumer.Config{
				Brokers:         cfg.Kafka.Brokers,
				GroupID:         flags.group,
				Topics:          []string{cfg.Kafka.Topic},
				AutoOffsetReset: reset,
			}, printEvents(cmd.OutOrStdout()), log)
			if err != nil {
				return err
			}
			return c.Run(cmd.Context())
		},
	}

	cmd.Flags().StringVar(&flags.group, "group", "certwallet-tail", "consumer group ID")
	cmd.Flags().BoolVar(&flags.fromStart, "from-start", false, "start from the oldest retained event when the group has no offset")

	return cmd
}

// printEvents writes one line per import event. Undecodable records are
// reported and skipped so a bad record never blocks the partition.
func printEvents(w io.Writer) consumer.Handler {
	return consumer.HandlerFunc(func(_ context.Context, msg *consumer.Message) error {
		event, err := events.DecodeImport(msg.Value)
		if err != nil {
			fmt.Fprintf(w, "%s/%d@%d\tundecodable: %v\n", msg.Topic, msg.Partition, msg.Offset, err)
			return nil
		}
		line := fmt.Sprintf("%s\t%s\t%s", event.OccurredAt.Format(time.RFC3339), event.Outcome, event.RequestID)
		if event.Filename != "" {
			line += "\t" + event.Filename
		}
		if event.Error != "" {
			line += "\t" + event.Error
		}
		fmt.Fprintln(w, line)
		return nil
	})
}
