package service

import (
	"math/rand"
	"time"

	"github.com/tarothouse/backend/internal/domain"
)

const clientVersion = 1012

// UserProfile is the account snapshot returned by register and login.
type UserProfile struct {
	Pub   ClientSettings `json:"pub"`
	Plat  PlatformInfo   `json:"plat"`
	Stat  PlayerStats    `json:"stat"`
	Props Inventory      `json:"proop"`
}

type ClientSettings struct {
	Time    int64   `json:"time"`
	Theme   int     `json:"thm"`
	Index1  float64 `json:"ix1"`
	Index2  float64 `json:"ix2"`
	Version int     `json:"ver"`
}

type PlatformInfo struct {
	UID         string `json:"uid"`
	Name        string `json:"name"`
	Image       string `json:"image"`
	Email       string `json:"email"`
	PlatformID  int    `json:"platID"`
	PlatformUID string `json:"usrPlatUID"`
	RegTime     int64  `json:"regTime"`
	Banned      bool   `json:"ban"`
	BanUntil    int64  `json:"banUntil"`
	IllActNum   int    `json:"illActNum"`
	IllActList  string `json:"illActList"`
}

type PlayerStats struct {
	Level    int   `json:"lv"`
	Games    int   `json:"nGame"`
	Wins     int   `json:"nWin"`
	PlayTime int64 `json:"tPlay"`
}

type Inventory struct {
	Gold  int   `json:"gold"`
	Gems  int   `json:"gem"`
	Tools []int `json:"tools"`
}

func newUserProfile(user *domain.User, now time.Time) UserProfile {
	return UserProfile{
		Pub: ClientSettings{
			Time:    now.UnixMilli(),
			Theme:   rand.Intn(10) + 1,
			Index1:  1.0,
			Index2:  1.5,
			Version: clientVersion,
		},
		Plat: PlatformInfo{
			UID:         user.ID,
			Name:        user.Name,
			Email:       user.Email,
			PlatformID:  user.Platform,
			PlatformUID: user.PlatformUID,
			RegTime:     user.RegisteredAt.UnixMilli(),
		},
		Stat:  PlayerStats{Level: 1},
		Props: Inventory{Gold: 100, Gems: 10, Tools: []int{0, 0, 0}},
	}
}

// RankingEntry is one row of a leaderboard.
type RankingEntry struct {
	UID   string     `json:"uid"`
	Name  string     `json:"name"`
	Image string     `json:"img"`
	Value int        `json:"value"`
	Game  *GameBrief `json:"game,omitempty"`
}

type GameBrief struct {
	ID   int    `json:"id"`
	Seed string `json:"seed"`
	Time int64  `json:"time"`
}

// RankingSnapshot answers the ranking action.
type RankingSnapshot struct {
	Time   int64          `json:"time"`
	DayWin []RankingEntry `json:"dayWin"`
	Speed  []RankingEntry `json:"speed"`
}

func newRankingSnapshot(now time.Time) RankingSnapshot {
	ms := now.UnixMilli()
	return RankingSnapshot{
		Time: ms,
		DayWin: []RankingEntry{
			{UID: "usr1", Name: "Player A", Value: 12},
			{UID: "usr2", Name: "Player B", Value: 10},
		},
		Speed: []RankingEntry{
			{UID: "usr3", Name: "Player C", Value: 98, Game: &GameBrief{ID: 101, Seed: "seed123", Time: ms}},
		},
	}
}

// HistoryEntry is one recorded move of a past game.
type HistoryEntry struct {
	Act  int            `json:"act"`
	Data map[string]any `json:"data"`
}

func newHistorySnapshot() []HistoryEntry {
	return []HistoryEntry{
		{Act: 1, Data: map[string]any{"move": "left"}},
		{Act: 2, Data: map[string]any{"move": "jump"}},
	}
}

// EchoResult answers actions and commands without a dedicated handler.
type EchoResult struct {
	Action any    `json:"action"`
	Status string `json:"status"`
}
