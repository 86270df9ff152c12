package mocks

import (
	"meetup-chat/internal/service"
)

var _ service.ChatBroadcaster = (*ChatBroadcasterMock)(nil)
var _ service.GroupBroadcaster = (*GroupBroadcasterMock)(nil)
