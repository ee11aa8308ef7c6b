package database

import (
	"github.com/lysyi3m/ad-comb/app/ads"
)

var (
	_ ads.Store         = (*AdRepository)(nil)
	_ ads.Notifier      = (*NotificationRepository)(nil)
	_ ads.ContentSource = (*PostRepository)(nil)
)
