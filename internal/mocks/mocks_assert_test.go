package mocks_test

import (
	"spark-service/internal/mocks"
	"spark-service/internal/service"
)

var _ service.Broadcaster = (*mocks.BroadcasterMock)(nil)
var _ service.Notifier = (*mocks.NotifierMock)(nil)
