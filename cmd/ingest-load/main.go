// ingest-load — нагрузочный и отладочный клиент ingest-gateway.
package main

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/bigkaa/goartstore/ingest-gateway/internal/loaddriver"
)

// clientOptions — общие флаги подключения к серверу.
type clientOptions struct {
	url      string
	deviceID string
	password string
	timeout  time.Duration
	verbose  bool
}

// driverOptions — флаги нагрузочных режимов.
type driverOptions struct {
	requests    int
	concurrency int
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Ошибка: %v\n", err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	opts := &clientOptions{}

	root := &cobra.Command{
		Use:           "ingest-load",
		Short:         "Клиент ingest-gateway: одиночная загрузка и нагрузочные прогоны",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	addClientFlags(root.PersistentFlags(), opts)

	root.AddCommand(
		newReportCmd(opts),
		newUploadCmd(opts),
		newSendFileCmd(opts),
	)
	return root
}

func addClientFlags(fs *pflag.FlagSet, opts *clientOptions) {
	fs.StringVar(&opts.url, "url", "http://localhost:8080", "Адрес ingest-gateway")
	fs.StringVar(&opts.deviceID, "device-id", "device123", "Device-ID устройства")
	fs.StringVar(&opts.password, "password", "password123", "Пароль устройства")
	fs.DurationVar(&opts.timeout, "timeout", 30*time.Second, "Таймаут одного запроса")
	fs.BoolVarP(&opts.verbose, "verbose", "v", false, "Логировать неуспешные запросы")
}

func addDriverFlags(fs *pflag.FlagSet, opts *driverOptions) {
	fs.IntVarP(&opts.requests, "requests", "n", 1000, "Число запросов")
	fs.IntVarP(&opts.concurrency, "concurrency", "c", 100, "Максимум одновременных запросов")
}

func (o *clientOptions) client() *loaddriver.Client {
	return loaddriver.NewClient(o.url, &http.Client{Timeout: o.timeout}, o.deviceID, o.password)
}

func (o *clientOptions) logger() *slog.Logger {
	level := slog.LevelInfo
	if o.verbose {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
}

func (o *clientOptions) driver(d *driverOptions) (*loaddriver.Driver, error) {
	if d.requests < 1 {
		return nil, fmt.Errorf("--requests должен быть положительным, получено %d", d.requests)
	}
	if d.concurrency < 1 {
		return nil, fmt.Errorf("--concurrency должен быть положительным, получено %d", d.concurrency)
	}
	return &loaddriver.Driver{
		Client:      o.client(),
		Concurrency: d.concurrency,
		Logger:      o.logger(),
	}, nil
}

func newReportCmd(opts *clientOptions) *cobra.Command {
	dopts := &driverOptions{}
	cmd := &cobra.Command{
		Use:   "report",
		Short: "Отправить N отчётов file_transfer на /report",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			d, err := opts.driver(dopts)
			if err != nil {
				return err
			}
			summary, err := d.RunReports(cmd.Context(), dopts.requests)
			fmt.Fprintln(cmd.OutOrStdout(), summary)
			return err
		},
	}
	addDriverFlags(cmd.Flags(), dopts)
	return cmd
}

func newUploadCmd(opts *clientOptions) *cobra.Command {
	dopts := &driverOptions{}
	var size int
	cmd := &cobra.Command{
		Use:   "upload",
		Short: "Загрузить N файлов load-<i>.bin на /upload",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if size < 0 {
				return fmt.Errorf("--size не может быть отрицательным, получено %d", size)
			}
			d, err := opts.driver(dopts)
			if err != nil {
				return err
			}
			payload := bytes.Repeat([]byte{'x'}, size)
			summary, err := d.RunUploads(cmd.Context(), dopts.requests, payload)
			fmt.Fprintln(cmd.OutOrStdout(), summary)
			return err
		},
	}
	addDriverFlags(cmd.Flags(), dopts)
	cmd.Flags().IntVar(&size, "size", 1024, "Размер каждого файла в байтах")
	return cmd
}

func newSendFileCmd(opts *clientOptions) *cobra.Command {
	var fileType string
	cmd := &cobra.Command{
		Use:   "send-file <path>",
		Short: "Загрузить один локальный файл",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			resp, err := opts.client().SendFile(cmd.Context(), args[0], fileType)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%d %s\n", resp.StatusCode, resp.Body)
			if resp.StatusCode != http.StatusOK {
				return fmt.Errorf("сервер вернул %d", resp.StatusCode)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&fileType, "file-type", "binary", "Значение заголовка File-Type")
	return cmd
}
