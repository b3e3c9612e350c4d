package config

import "BranchRadar/internal/model"

// DefaultWatchlist is the curated connector supply-chain set monitored for
// precise cost lookups. Overridable via the watchlist section of the config file.
var DefaultWatchlist = []model.WatchEntry{
	// AI / 高速傳輸
	{TickerID: "3533", Name: "嘉澤", Category: "🚀 AI/高速傳輸 (CPU Socket龍頭)"},
	{TickerID: "3665", Name: "貿聯-KY", Category: "🚀 AI/高速傳輸 (特斯拉/輝達概念)"},
	{TickerID: "3605", Name: "宏致", Category: "🚀 AI/高速傳輸 (雲端資料中心)"},
	{TickerID: "3217", Name: "優群", Category: "🚀 AI/高速傳輸 (DDR5連接器)"},
	{TickerID: "6197", Name: "佳必琪", Category: "🚀 AI/高速傳輸 (NVIDIA供應鏈)"},
	{TickerID: "3526", Name: "凡甲", Category: "🚀 AI/高速傳輸 (高功率連接器)"},
	{TickerID: "6213", Name: "聯茂", Category: "🚀 AI/高速傳輸 (高頻高速材料)"},

	// 車用 / 工控
	{TickerID: "6279", Name: "胡連", Category: "🚗 車用/工控 (車用端子龍頭)"},
	{TickerID: "3023", Name: "信邦", Category: "🚗 車用/工控 (客製化線束龍頭)"},
	{TickerID: "3003", Name: "健和興", Category: "🚗 車用/工控 (充電槍/高壓端子)"},
	{TickerID: "2460", Name: "建通", Category: "🚗 車用/工控 (異型導體銅材)"},
	{TickerID: "6290", Name: "良維", Category: "🚗 車用/工控 (充電樁線材)"},
	{TickerID: "3501", Name: "維熹", Category: "🚗 車用/工控 (正崴集團/充電槍)"},

	// 消費性電子
	{TickerID: "2317", Name: "鴻海", Category: "💻 消費電子 (產業霸主/鴻騰精密)"},
	{TickerID: "2392", Name: "正崴", Category: "💻 消費電子 (蘋果供應鏈/Type-C)"},
	{TickerID: "5457", Name: "宣德", Category: "💻 消費電子 (立訊入股/Type-C)"},
	{TickerID: "6205", Name: "詮欣", Category: "💻 消費電子 (車用影像/USB 4.0)"},
	{TickerID: "3092", Name: "鴻碩", Category: "💻 消費電子 (訊號線大廠)"},
	{TickerID: "2462", Name: "良得電", Category: "💻 消費電子 (AC電源線)"},
	{TickerID: "3511", Name: "矽瑪", Category: "💻 消費電子 (穿戴裝置/醫療)"},

	// 上游材料
	{TickerID: "2009", Name: "第一銅", Category: "⚙️ 上游材料 (銅片供應商)"},
	{TickerID: "2476", Name: "鉅祥", Category: "⚙️ 上游材料 (精密金屬沖壓)"},
	{TickerID: "1617", Name: "榮星", Category: "⚙️ 上游材料 (漆包線廠)"},
}
