package main

import (
	"time"

	"github.com/elonfeng/playaura/pkg/creator"
)

// sampleCreators seeds the demo when the store is empty.
func sampleCreators(now time.Time) []creator.Creator {
	c := func(id, name, region, category string, f creator.Format, desc string, subs, subsDelta, viewsDelta, uploads int64, avg float64) creator.Creator {
		return creator.Creator{
			ID: id, Name: name, Region: region, CategoryID: category, Format: f,
			Description:   desc,
			ChannelURL:    "https://www.youtube.com/channel/" + id,
			LastUpdatedAt: now,
			Stats: creator.ChannelStats{
				Subscribers:         creator.Int(subs),
				SubsDelta7d:         creator.Int(subsDelta),
				ViewsDelta7d:        creator.Int(viewsDelta),
				Uploads7d:           creator.Int(uploads),
				AvgViewsPerVideo28d: creator.Float(avg),
			},
		}
	}

	news := c("demo-news", "SBS 뉴스", "KR", "news", creator.FormatLong,
		"SBS 뉴스 공식 유튜브 채널입니다. 무단전재 및 재배포 금지", 5_000_000, 300_000, 80_000_000, 40, 120_000)
	news.Stats.TotalVideos = creator.Int(12_000)

	return []creator.Creator{
		c("demo-pixel", "Pixel Pals", "KR", "gaming", creator.FormatLong,
			"minecraft speedrun challenges every week", 1_200_000, 180_000, 42_000_000, 5, 310_000),
		c("demo-blocks", "Block Lords", "US", "gaming", creator.FormatShorts,
			"minecraft speedrun shorts and builds", 800_000, 95_000, 61_000_000, 14, 900_000),
		c("demo-gadget", "Gadget Guru", "US", "tech", creator.FormatLong,
			"smartphone reviews and laptop teardown", 2_400_000, 12_000, 9_000_000, 2, 420_000),
		c("demo-chip", "Chip Talk", "IN", "tech", creator.FormatLong,
			"laptop teardown and smartphone benchmarks", 650_000, 40_000, 6_500_000, 3, 150_000),
		c("demo-lofi", "Lo Fi Cafe", "JP", "music", creator.FormatLong,
			"beats to study and relax", 3_100_000, 8_000, 4_000_000, 1, 90_000),
		c("demo-chef", "Chef Bruna", "BR", "lifestyle", creator.FormatShorts,
			"receitas rapidas para o dia a dia", 420_000, 60_000, 18_000_000, 9, 500_000),
		c("demo-money", "Money Minute", "ID", "economy", creator.FormatLong,
			"investasi saham untuk pemula", 210_000, 25_000, 2_100_000, 4, 60_000),
		news,
	}
}
