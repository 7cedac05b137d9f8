package classify

// Rules holds the keyword lists the classifier checks, in rule order.
type Rules struct {
	Vertical           []string
	Tool               []string
	ResearchSources    []string
	AcademicIndicators []string
	LongFormPhrases    []string
	Positive           []string
	Negative           []string
	// LongFormWords is the summary word count above which an item is long form.
	LongFormWords int
	// MinAcademicHits is how many academic indicators a title needs.
	MinAcademicHits int
}

// DefaultRules returns the built-in keyword lists.
func DefaultRules() Rules {
	return Rules{
		Vertical: []string{
			"agriculture", "farming", "grain", "crop", "harvest", "agricultural",
			"farm", "wheat", "corn", "rice", "quality control", "soil", "farmer",
		},
		Tool: []string{
			"tool", "platform", "app", "application", "launch", "release",
			"product", "library", "framework", "announces", "introduces",
			"debuts", "new service", "available now", "download", "open source",
		},
		ResearchSources: []string{"arxiv", "research paper", "journal", "university", "academic"},
		AcademicIndicators: []string{
			"research", "study", "analysis", "findings", "model", "framework", "algorithm",
		},
		LongFormPhrases: []string{"white paper", "report", "analysis", "deep dive"},
		Positive: []string{
			"breakthrough", "cure", "innovation", "success", "achievement",
			"milestone", "wins", "discovery", "medical advance", "health benefit",
			"positive development", "good news", "solution", "beat", "exceeds", "record",
		},
		Negative: []string{
			"crisis", "layoffs", "lawsuit", "breach", "scandal", "failure",
			"fails", "threat", "attack", "warning", "decline", "loss", "ban",
		},
		LongFormWords:   400,
		MinAcademicHits: 2,
	}
}
