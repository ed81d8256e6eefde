// Package ads — provider.go описывает коллаборатор рекламного SDK.
package ads

import log "github.com/sirupsen/logrus"

// Provider — сторона, умеющая загружать рекламные блоки.
// Менеджер просит загрузку; подтверждение (EventLoaded/EventError)
// приходит отдельным потоком событий.
type Provider interface {
	Load(userID int64)
}

// SDKProvider — провайдер для клиентского SDK: фактическую загрузку
// выполняет устройство, серверу остаётся отметить запрос в логе и ждать
// событие loaded/error от клиента.
type SDKProvider struct{}

// Load отмечает запрос загрузки блока.
func (SDKProvider) Load(userID int64) {
	log.WithField("user_id", userID).Debug("Запрошена загрузка рекламного блока")
}
