package models

import "time"

type WatchlistEntry struct {
	ID            int64     `json:"id"`
	UserID        int64     `json:"userId"`
	AnimeID       int64     `json:"AnimeId"`
	EnglishTitle  string    `json:"English_Title"`
	JapaneseTitle string    `json:"Japanese_Title"`
	ImageURL      string    `json:"Image_url"`
	Synopsis      string    `json:"synopsis"`
	CreatedAt     time.Time `json:"createdAt"`
}
