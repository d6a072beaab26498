package notify

import (
	"scorepusher/lib/notify/mail"
	"scorepusher/lib/notify/telegram"
)

// Default returns a registry with every built in channel type.
func Default() *Registry {
	r := NewRegistry()
	r.Register(telegram.Type, func(fields map[string]any) (Channel, error) {
		channel, err := telegram.New(fields)
		if err != nil {
			return nil, err
		}
		return channel, nil
	})
	r.Register(mail.Type, func(fields map[string]any) (Channel, error) {
		channel, err := mail.New(fields)
		if err != nil {
			return nil, err
		}
		return channel, nil
	})
	return r
}
