package cmd

import (
	"context"
	"fmt"
	"os"
	"strconv"

	"github.com/frahmantamala/shopbot-engine/internal/core/redisx"
	"github.com/frahmantamala/shopbot-engine/internal/core/sideeffect"
	"github.com/frahmantamala/shopbot-engine/internal/stocknotify"
	"github.com/frahmantamala/shopbot-engine/pkg/logger"
	"github.com/spf13/cobra"
)

var eventCmd = &cobra.Command{
	Use:   "event",
	Short: "Event management commands",
	Long:  `Publish test stock updates onto the pub/sub channel for debugging subscribers`,
}

var publishStockCmd = &cobra.Command{
	Use:   "publish-stock [product-id] [previous-qty] [new-qty]",
	Short: "Publish a stock update",
	Long:  `Publish a stock update event without touching the ledger. Subscribers resync from the database, so this is safe to use for testing.`,
	Args:  cobra.ExactArgs(3),
	Run: func(cmd *cobra.Command, args []string) {
		if err := publishStockUpdate(cmd.Context(), args); err != nil {
			fmt.Fprintln(os.Stderr, err)
			os.Exit(1)
		}
	},
}

var eventActor string

func publishStockUpdate(ctx context.Context, args []string) error {
	productID, err := strconv.ParseInt(args[0], 10, 64)
	if err != nil {
		return fmt.Errorf("invalid product id %q", args[0])
	}
	prev, err := strconv.Atoi(args[1])
	if err != nil {
		return fmt.Errorf("invalid previous quantity %q", args[1])
	}
	next, err := strconv.Atoi(args[2])
	if err != nil {
		return fmt.Errorf("invalid new quantity %q", args[2])
	}

	config, err := loadConfig(configPath)
	if err != nil {
		return err
	}
	lg := logger.LoggerWrapper()

	rdb := redisx.New(config.Redis)
	defer rdb.Close()

	publisher := stocknotify.NewPublisher(rdb, config.Stock.UpdateChannel, config.Stock.PublishTimeout, lg)
	result := publisher.NotifyStockUpdate(ctx, productID, prev, next, eventActor)
	sideeffect.Log(lg, result, "product_id", productID)
	if !result.OK() {
		return result.Err
	}

	lg.Info("stock update published", "product_id", productID, "previous_quantity", prev, "new_quantity", next)
	return nil
}

func init() {
	publishStockCmd.Flags().StringVar(&eventActor, "actor", "cli", "Actor id recorded on the event")

	eventCmd.AddCommand(publishStockCmd)

	rootCmd.AddCommand(eventCmd)
}
