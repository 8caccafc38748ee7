package models

import "github.com/uptrace/bun"

const SettingGameOn = "game_on"

type Setting struct {
	bun.BaseModel `bun:"table:settings"`

	Key   string `bun:"key,pk" json:"key"`
	Value bool   `bun:"value,notnull,default:false" json:"value"`
}

type GameToggleRequest struct {
	Value bool `json:"value"`
}
