package handlers

import (
	tgbot "github.com/go-telegram/bot"
)

// RegisteredHandler describes one handler and how it is matched.
type RegisteredHandler struct {
	HandlerType tgbot.HandlerType
	Pattern     string
	Handler     tgbot.HandlerFunc
	Middleware  []tgbot.Middleware
	MatchType   tgbot.MatchType
}

// RegisterAllCommands returns every command and callback handler keyed by
// its command name. Plain messages and uploads go to NewMessageHandler,
// installed as the default handler.
func RegisterAllCommands(deps HandlerDeps) map[string]RegisteredHandler {
	handlers := make(map[string]RegisteredHandler)

	command := func(name string, h tgbot.HandlerFunc, mw ...tgbot.Middleware) {
		handlers["/"+name] = RegisteredHandler{
			HandlerType: tgbot.HandlerTypeMessageText,
			Pattern:     name,
			Handler:     h,
			MatchType:   tgbot.MatchTypeCommandStartOnly,
			Middleware:  mw,
		}
	}

	command("start", NewStartHandler(deps))
	command("help", NewHelpHandler(deps))
	command("faq", NewFAQHandler(deps))
	command("recent", NewRecentHandler(deps))
	command("files", NewFilesHandler(deps))
	command("clear", NewClearHandler(deps))
	command("archive", NewArchiveHandler(deps), AdminOnly(deps))

	callback := func(prefix string, h tgbot.HandlerFunc) {
		handlers[prefix] = RegisteredHandler{
			HandlerType: tgbot.HandlerTypeCallbackQueryData,
			Pattern:     prefix,
			Handler:     h,
			MatchType:   tgbot.MatchTypePrefix,
		}
	}

	callback(faqCallbackPrefix, NewFAQCallbackHandler(deps))
	callback(recentCallbackPrefix, NewRecentCallbackHandler(deps))

	return handlers
}
