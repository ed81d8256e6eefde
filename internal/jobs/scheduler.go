// Package jobs управляет фоновыми задачами (cron).
// scheduler.go настраивает расписание: полуночное пополнение дневной
// квоты спинов в каноническом часовом поясе.
package jobs

import (
	"context"

	"github.com/robfig/cron/v3"
	log "github.com/sirupsen/logrus"

	"lumoplay.ru/engagement-api/internal/common"
	"lumoplay.ru/engagement-api/internal/features/profile"
)

// Scheduler управляет фоновыми задачами.
type Scheduler struct {
	cron           *cron.Cron
	profileService *profile.Service
}

// NewScheduler создаёт планировщик задач в каноническом часовом поясе.
// Полночь здесь и только здесь: границы «дня» для серий и квот никогда
// не зависят от часов клиента.
func NewScheduler(profileService *profile.Service, clock *common.Clock) *Scheduler {
	c := cron.New(cron.WithLocation(clock.Location()))
	return &Scheduler{
		cron:           c,
		profileService: profileService,
	}
}

// Start запускает все фоновые задачи.
func (s *Scheduler) Start(ctx context.Context) {
	// Пополнение квоты спинов в 00:00 канонического пояса.
	// Списание спина дополнительно страхуется ленивым пополнением
	// в транзакции, так что отставший крон не ломает квоту.
	s.cron.AddFunc("0 0 * * *", func() {
		log.Info("[CRON] Пополнение дневной квоты спинов")
		n, err := s.profileService.RefillSpins(ctx)
		if err != nil {
			log.WithError(err).Error("[CRON] Ошибка пополнения квоты")
			return
		}
		log.WithField("profiles", n).Info("[CRON] Квота пополнена")
	})

	s.cron.Start()
	log.Info("Планировщик задач запущен")
}

// Stop останавливает планировщик.
func (s *Scheduler) Stop() {
	ctx := s.cron.Stop()
	<-ctx.Done()
	log.Info("Планировщик задач остановлен")
}
