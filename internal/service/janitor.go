// janitor.go — фоновая очистка временных файлов.
//
// Janitor удаляет из storage_root/.incoming временные файлы старше
// IG_TEMP_MAX_AGE, оставшиеся после аварийного завершения процесса
// посреди записи. Сохранённые файлы устройств не трогает никогда.
//
// Запускается как горутина с периодическим тикером (IG_JANITOR_INTERVAL).
package service

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Prometheus метрики janitor
var (
	// janitorRunsTotal — количество запусков очистки.
	janitorRunsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "ig_janitor_runs_total",
		Help: "Общее количество запусков очистки временных файлов",
	})

	// janitorRemovedTotal — количество удалённых временных файлов.
	janitorRemovedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "ig_janitor_removed_total",
		Help: "Общее количество удалённых временных файлов",
	})

	// janitorDurationSeconds — длительность очистки.
	janitorDurationSeconds = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "ig_janitor_duration_seconds",
		Help:    "Длительность очистки временных файлов в секундах",
		Buckets: []float64{0.001, 0.01, 0.05, 0.1, 0.5, 1, 5},
	})
)

// TempCleaner — хранилище, умеющее удалять брошенные временные файлы.
type TempCleaner interface {
	CleanupTemp(olderThan time.Duration) (int, error)
}

// JanitorResult — результат одного запуска очистки.
type JanitorResult struct {
	// Removed — количество удалённых временных файлов
	Removed int
	// Err — ошибка очистки (часть файлов могла быть удалена)
	Err error
	// Duration — длительность выполнения
	Duration time.Duration
}

// JanitorService — сервис фоновой очистки временных файлов.
type JanitorService struct {
	store    TempCleaner
	interval time.Duration
	maxAge   time.Duration
	logger   *slog.Logger

	mu     sync.Mutex // защита от параллельного запуска RunOnce
	cancel context.CancelFunc
	done   chan struct{}
}

// NewJanitorService создаёт сервис очистки.
func NewJanitorService(
	store TempCleaner,
	interval time.Duration,
	maxAge time.Duration,
	logger *slog.Logger,
) *JanitorService {
	return &JanitorService{
		store:    store,
		interval: interval,
		maxAge:   maxAge,
		logger:   logger.With(slog.String("component", "janitor")),
	}
}

// Start запускает фоновую горутину с периодическим тикером.
// Вызывается один раз при старте приложения.
func (j *JanitorService) Start(ctx context.Context) {
	jCtx, cancel := context.WithCancel(ctx)
	j.cancel = cancel
	j.done = make(chan struct{})

	go j.run(jCtx)

	j.logger.Info("Janitor запущен",
		slog.String("interval", j.interval.String()),
		slog.String("max_age", j.maxAge.String()),
	)
}

// Stop останавливает фоновый процесс и дожидается его завершения.
func (j *JanitorService) Stop() {
	if j.cancel == nil {
		return
	}
	j.cancel()
	<-j.done
	j.logger.Info("Janitor остановлен")
}

// run — основной цикл фоновой горутины.
func (j *JanitorService) run(ctx context.Context) {
	defer close(j.done)

	// Первый запуск — сразу после старта
	j.RunOnce()

	ticker := time.NewTicker(j.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			j.RunOnce()
		}
	}
}

// RunOnce выполняет один цикл очистки.
// Потокобезопасен: использует mutex для защиты от параллельного запуска.
func (j *JanitorService) RunOnce() *JanitorResult {
	j.mu.Lock()
	defer j.mu.Unlock()

	start := time.Now()
	removed, err := j.store.CleanupTemp(j.maxAge)
	result := &JanitorResult{
		Removed:  removed,
		Err:      err,
		Duration: time.Since(start),
	}

	janitorRunsTotal.Inc()
	janitorRemovedTotal.Add(float64(removed))
	janitorDurationSeconds.Observe(result.Duration.Seconds())

	if err != nil {
		j.logger.Error("Janitor: ошибка очистки",
			slog.Int("removed", removed),
			slog.String("error", err.Error()),
		)
		return result
	}

	level := slog.LevelDebug
	if removed > 0 {
		level = slog.LevelInfo
	}
	j.logger.Log(context.Background(), level, "Janitor завершён",
		slog.Int("removed", removed),
		slog.Duration("duration", result.Duration),
	)

	return result
}
