// Package fixtures holds the featured demo posts and sample comments that
// ship with the site. They are never persisted and never mutated.
package fixtures

import (
	"time"

	"launchpad/internal/models"
)

type seed struct {
	title    string
	content  string
	author   string
	category string
	tags     string
	stage    string
	location string
	website  string
	revenue  string
	image    string
	flag     models.Flag
	upvotes  int
	comments int
	views    int
	age      time.Duration
}

var seeds = []seed{
	{
		title:    "PulseCoach: an AI fitness coach that reads your wearables",
		content:  "We personalise workouts from real-time biometric data. Looking for a technical co-founder with experience in on-device ML.",
		author:   "Sarah Chen",
		category: "AI/ML",
		tags:     "ai, fitness, wearables",
		stage:    "Pre-Seed",
		location: "San Francisco, CA",
		website:  "https://pulsecoach.example.com",
		revenue:  "Pre-Revenue",
		image:    "https://images.unsplash.com/photo-1517836357463-d25dfeac3438?w=500&h=300&fit=crop",
		flag:     models.FlagQuestion,
		upvotes:  24,
		comments: 8,
		views:    412,
		age:      2 * time.Hour,
	},
	{
		title:    "ThreadLoop: a marketplace for traceable sustainable fashion",
		content:  "Connects shoppers with eco-friendly brands and tracks the footprint of every order. Feedback on the pricing model welcome.",
		author:   "Marcus Rodriguez",
		category: "E-commerce",
		tags:     "fashion, sustainability, marketplace",
		stage:    "Seed",
		location: "Austin, TX",
		website:  "https://threadloop.example.com",
		revenue:  "$8K MRR",
		image:    "https://images.unsplash.com/photo-1441986300917-64674bd600d8?w=500&h=300&fit=crop",
		flag:     models.FlagOpinion,
		upvotes:  18,
		comments: 12,
		views:    530,
		age:      5 * time.Hour,
	},
	{
		title:    "LedgerLeaf closed its Series A, AMA about the process",
		content:  "After 18 months building bookkeeping automation for small businesses we closed our Series A. Ask me anything about the raise.",
		author:   "Emma Thompson",
		category: "FinTech",
		tags:     "fintech, fundraising, saas",
		stage:    "Series A",
		location: "New York, NY",
		website:  "https://ledgerleaf.example.com",
		revenue:  "$1.2M ARR",
		image:    "https://images.unsplash.com/photo-1554224155-6726b3ff858f?w=500&h=300&fit=crop",
		flag:     models.FlagNews,
		upvotes:  89,
		comments: 34,
		views:    2210,
		age:      26 * time.Hour,
	},
	{
		title:    "Weekly pitch session: share your 60-second elevator pitch",
		content:  "Post your pitch in the comments and get feedback from fellow founders and mentors.",
		author:   "David Park",
		category: "Other",
		tags:     "community, pitching",
		stage:    "Idea",
		location: "Remote",
		revenue:  "Pre-Revenue",
		image:    "https://images.unsplash.com/photo-1552664730-d307ca884978?w=500&h=300&fit=crop",
		flag:     models.FlagDiscussion,
		upvotes:  45,
		comments: 67,
		views:    1304,
		age:      72 * time.Hour,
	},
	{
		title:    "GridSense: demand forecasting for community solar",
		content:  "We forecast neighbourhood energy demand so community solar operators can cut curtailment. Piloting with two co-ops.",
		author:   "Priya Natarajan",
		category: "Climate",
		tags:     "climate, energy, forecasting",
		stage:    "Seed",
		location: "Berlin, DE",
		website:  "https://gridsense.example.com",
		revenue:  "$40K ARR",
		image:    "https://images.unsplash.com/photo-1509391366360-2e959784a276?w=500&h=300&fit=crop",
		upvotes:  31,
		comments: 5,
		views:    688,
		age:      120 * time.Hour,
	},
}

// Posts returns the featured posts with creation times relative to now.
// Fixture ids start at 1 and are only meaningful together with IsReal=false.
func Posts(now time.Time) []models.Post {
	posts := make([]models.Post, len(seeds))
	for i, s := range seeds {
		posts[i] = models.Post{
			ID:            uint(i + 1),
			CreatedAt:     now.Add(-s.age),
			Title:         s.title,
			Content:       s.content,
			Author:        s.author,
			Category:      s.category,
			ImageURL:      s.image,
			Upvotes:       s.upvotes,
			CommentsCount: s.comments,
			Views:         s.views,
			Tags:          s.tags,
			FundingStage:  s.stage,
			Location:      s.location,
			Website:       s.website,
			Revenue:       s.revenue,
			Flag:          s.flag,
			IsReal:        false,
		}
	}
	return posts
}

// Comments returns the sample thread every detail view starts from.
func Comments(now time.Time) []models.Comment {
	return []models.Comment{
		{
			ID:        1,
			Author:    "Alex Johnson",
			Content:   "This is exactly what the market needs! The scalability potential is incredible. Have you considered partnerships with major industry players?",
			Upvotes:   12,
			CreatedAt: now.Add(-2 * time.Hour),
		},
		{
			ID:        2,
			Author:    "Sarah Kim",
			Content:   "Impressive work! I'm particularly interested in the technical implementation. Would love to see more details about the architecture.",
			Upvotes:   8,
			CreatedAt: now.Add(-5 * time.Hour),
		},
	}
}
