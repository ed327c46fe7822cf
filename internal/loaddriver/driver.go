// driver.go — конкурентный запуск запросов с ограничением параллелизма.
package loaddriver

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"
)

// FileTransferReport — тело отчёта в режиме report.
var FileTransferReport = []byte(`{"type":"file_transfer"}`)

// RequestFunc выполняет i-й запрос.
type RequestFunc func(ctx context.Context, i int) (*Response, error)

// Summary — итог прогона.
type Summary struct {
	// Total — число запущенных запросов
	Total int
	// Succeeded — ответы 2xx
	Succeeded int
	// Failed — ответы не 2xx и транспортные ошибки
	Failed int
	// Duration — время прогона
	Duration time.Duration
	// StatusCounts — число ответов по HTTP-статусу
	StatusCounts map[int]int
}

// String возвращает краткую сводку для вывода в консоль.
func (s *Summary) String() string {
	return fmt.Sprintf("total=%d succeeded=%d failed=%d duration=%s statuses=%v",
		s.Total, s.Succeeded, s.Failed, s.Duration.Round(time.Millisecond), s.StatusCounts)
}

// Driver запускает запросы не более чем по Concurrency одновременно.
// Повторов нет: каждый запрос выполняется ровно один раз.
type Driver struct {
	Client      *Client
	Concurrency int
	// Logger — nil отключает логирование неуспешных запросов
	Logger *slog.Logger
}

// Run выполняет n запросов fn. Отмена ctx прекращает запуск новых
// запросов; уже запущенные получают отменённый контекст.
// Возвращает ctx.Err(), если прогон был прерван.
func (d *Driver) Run(ctx context.Context, n int, fn RequestFunc) (*Summary, error) {
	limit := d.Concurrency
	if limit < 1 {
		limit = 1
	}

	var (
		mu      sync.Mutex
		summary = &Summary{StatusCounts: make(map[int]int)}
	)

	start := time.Now()
	g := new(errgroup.Group)
	g.SetLimit(limit)

	for i := range n {
		if ctx.Err() != nil {
			break
		}
		summary.Total++

		g.Go(func() error {
			resp, err := fn(ctx, i)

			mu.Lock()
			defer mu.Unlock()
			switch {
			case err != nil:
				summary.Failed++
				d.logFailure(i, 0, err)
			case resp.StatusCode >= 200 && resp.StatusCode < 300:
				summary.Succeeded++
				summary.StatusCounts[resp.StatusCode]++
			default:
				summary.Failed++
				summary.StatusCounts[resp.StatusCode]++
				d.logFailure(i, resp.StatusCode, nil)
			}
			// Ошибка запроса не прерывает остальные
			return nil
		})
	}

	_ = g.Wait()
	summary.Duration = time.Since(start)

	return summary, ctx.Err()
}

// RunReports отправляет n отчётов file_transfer.
func (d *Driver) RunReports(ctx context.Context, n int) (*Summary, error) {
	return d.Run(ctx, n, func(ctx context.Context, _ int) (*Response, error) {
		return d.Client.Report(ctx, FileTransferReport)
	})
}

// RunUploads загружает n файлов load-<i>.bin с содержимым payload.
func (d *Driver) RunUploads(ctx context.Context, n int, payload []byte) (*Summary, error) {
	return d.Run(ctx, n, func(ctx context.Context, i int) (*Response, error) {
		return d.Client.Upload(ctx, UploadFileName(i), "load", bytes.NewReader(payload))
	})
}

// UploadFileName возвращает имя i-го файла в режиме upload.
func UploadFileName(i int) string {
	return fmt.Sprintf("load-%d.bin", i)
}

func (d *Driver) logFailure(i, status int, err error) {
	if d.Logger == nil {
		return
	}
	attrs := []any{slog.Int("request", i), slog.Int("status", status)}
	if err != nil {
		attrs = append(attrs, slog.String("error", err.Error()))
	}
	d.Logger.Debug("Запрос завершился неуспешно", attrs...)
}
