package model

type Candidate struct {
	Name        string `json:"name" yaml:"name"`
	Party       string `json:"party" yaml:"party"`
	Symbol      Option `json:"symbol" yaml:"symbol"`
	Image       string `json:"image" yaml:"image"`
	Designation string `json:"designation" yaml:"designation"`
	Motto       string `json:"motto" yaml:"motto"`
}

type Insight struct {
	Title    string `json:"title" yaml:"title"`
	Summary  string `json:"summary" yaml:"summary"`
	Category string `json:"category" yaml:"category"`
}

// DefaultCandidates is shown when the candidates endpoint is unavailable.
func DefaultCandidates() []Candidate {
	return []Candidate{
		{
			Name:        "Tarique Rahman",
			Party:       "Bangladesh Nationalist Party (BNP)",
			Symbol:      OptionRice,
			Designation: "Acting Chairman",
			Motto:       "Democracy, development and freedom of speech",
		},
		{
			Name:        "Dr. Shafiqur Rahman",
			Party:       "Bangladesh Jamaat-e-Islami",
			Symbol:      OptionScale,
			Designation: "Ameer",
			Motto:       "A just and humane society",
		},
	}
}

// DefaultInsights is shown when the insights endpoint is unavailable.
func DefaultInsights() []Insight {
	return []Insight{
		{
			Title:    "Voter turnout trend",
			Summary:  "Early projections point to record youth participation in urban centres.",
			Category: "Analysis",
		},
		{
			Title:    "Security measures",
			Summary:  "The Election Commission has announced enhanced digital monitoring of 2026 polling centres.",
			Category: "Update",
		},
		{
			Title:    "Historical context",
			Summary:  "This will be the 13th general election in the country's democratic history.",
			Category: "Info",
		},
	}
}
