package cmd

import (
	"context"
	"fmt"
	"os"

	"github.com/frahmantamala/leave-management/internal/notification"
	"github.com/frahmantamala/leave-management/pkg/logger"
	"github.com/spf13/cobra"
)

var notifyCmd = &cobra.Command{
	Use:   "notify",
	Short: "Notification tools",
	Long:  `Check the outbound email setup without going through the API`,
}

var notifyTestCmd = &cobra.Command{
	Use:   "test",
	Short: "Send a test email",
	Long:  `Send a test email through the configured mailer and report the outcome`,
	Run: func(cmd *cobra.Command, args []string) {
		sendTestEmail()
	},
}

var (
	notifyTo   string
	notifyName string
)

func init() {
	notifyTestCmd.Flags().StringVar(&notifyTo, "to", "", "recipient address")
	notifyTestCmd.Flags().StringVar(&notifyName, "name", "there", "recipient name used in the greeting")
	_ = notifyTestCmd.MarkFlagRequired("to")
	notifyCmd.AddCommand(notifyTestCmd)
}

func sendTestEmail() {
	cfg, err := loadConfig(configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}
	lg := logger.LoggerWrapper()

	dispatcher := notification.NewDispatcher(newMailer(cfg.Mail, lg), notification.DispatcherConfig{
		Workers:     1,
		QueueSize:   1,
		SendTimeout: cfg.Mail.SendTimeout,
	}, lg)

	email := notification.Email{
		To:      []string{notifyTo},
		Subject: "LeaveHub test email",
		Body:    fmt.Sprintf("Hello %s,\n\nThis is a test email from the Leave Management System.\n", notifyName),
	}

	err = dispatcher.Send(context.Background(), email)
	_ = dispatcher.Shutdown(context.Background())
	if err != nil {
		lg.Error("test email failed", "kind", notification.KindTest, "to", notifyTo, "error", err)
		os.Exit(1)
	}
	lg.Info("test email sent", "kind", notification.KindTest, "to", notifyTo)
}
