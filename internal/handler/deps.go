package handler

import (
	"pulsechat/internal/app/account"
	"pulsechat/internal/app/chat"
	"pulsechat/internal/configs"
)

// AppDeps bundles the collaborators the handlers need.
type AppDeps struct {
	Hub      *chat.Hub
	Config   *configs.AppConfig
	Accounts account.Store
}
