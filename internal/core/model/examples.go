// Copyright 2024 Google, LLC
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     https://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// This file provides hardcoded example instances used for few-shot
// prompting. Embedding a fully populated example of the expected JSON in
// the analysis prompt keeps the model output consistent and parsable.
package model

// GetExampleAnalysis returns a complete sample AnalysisResult. The JSON
// rendering of this value is injected into the analysis prompt so the model
// mirrors its structure, including the nested deep-analysis and hook arrays.
func GetExampleAnalysis() *AnalysisResult {
	return &AnalysisResult{
		Title:   "Walking Through the Wilderness",
		Summary: "A teaching on finding God's provision during seasons of waiting, drawing on Israel's wilderness years and the discipline of daily dependence.",
		Captions: []string{
			"Daily bread, daily trust.",
			"The wilderness is where dependence becomes a discipline.",
			"Provision arrives on God's schedule, not ours.",
		},
		Hashtags: []string{"#faith", "#provision", "#dailybread", "#wilderness", "#trust"},
		Story:    "Israel woke each morning to food that could not be stockpiled. The teaching traces that rhythm from the Exodus manna to the Lord's Prayer, arguing that God designed provision to arrive one day at a time so that his people would learn to come back tomorrow.",
		Scriptures: []Scripture{
			{
				Book:    "Exodus",
				Chapter: 16,
				Verse:   "4",
				Text:    "Then the LORD said to Moses, \"I will rain down bread from heaven for you.\"",
			},
			{
				Book:    "Deuteronomy",
				Chapter: 8,
				Verse:   "2-3",
				Text:    "Remember how the LORD your God led you all the way in the wilderness these forty years.",
			},
		},
		Themes: []string{"provision", "waiting", "dependence on God", "spiritual discipline"},
		DeepAnalysis: &DeepAnalysis{
			KeyQuotes: []KeyQuote{
				{
					Quote:              "Manna had a shelf life of one day, and that was the point.",
					Timestamp:          "00:04:12",
					Analysis:           "The speaker frames daily provision as a designed constraint rather than a limitation.",
					TheologicalInsight: "Daily bread trains trust; hoarding reflects unbelief in tomorrow's faithfulness.",
					Positivity:         "encouraging",
				},
			},
			TheologicalViews: []TheologicalView{
				{
					Theme:                "provision",
					BiblicalPerspective:  "God sustains his people incrementally so that dependence itself becomes the lesson.",
					PracticalApplication: "Build a daily rhythm of prayer before provision rather than after need.",
					RelatedScriptures: []Scripture{
						{Book: "Matthew", Chapter: 6, Verse: 11, Text: "Give us this day our daily bread."},
					},
				},
			},
			PositivityInsights: []string{
				"The message reframes waiting as formation rather than punishment.",
			},
			OverallMessage: "Seasons of scarcity are where dependence on God is learned, not where his care has lapsed.",
		},
		SocialMediaHooks: []SocialMediaHook{
			{Type: HookQuestion, Text: "What if the waiting season is the lesson, not the obstacle?", Platform: "instagram"},
			{Type: HookOpening, Text: "Manna expired daily on purpose.", Platform: "x"},
		},
	}
}
