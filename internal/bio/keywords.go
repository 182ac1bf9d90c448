package bio

// Keyword tables driving the heuristic scores. Matching is case-insensitive
// substring containment over the lower-cased bio text.

var humorIndicators = []string{
	"lol", "haha", "funny", "joke", "laugh", "hilarious",
	"witty", "sarcastic", "ironic", "😂", "😄", "😆",
	"pun", "clever", "amusing", "entertaining",
}

var confidenceMarkers = []string{
	"confident", "sure", "definitely", "absolutely", "certainly",
	"accomplished", "successful", "proud", "achieved", "excel",
	"lead", "manage", "create", "build", "passionate",
}

var uncertaintyMarkers = []string{
	"maybe", "might", "perhaps", "possibly", "hopefully",
	"trying", "attempting", "struggling", "difficult", "unsure",
}

var vulnerabilityMarkers = []string{
	"feel", "feelings", "emotional", "heart", "soul", "deep",
	"share", "open", "honest", "authentic", "real", "genuine",
	"vulnerable", "sensitive", "empathetic", "caring", "love",
	"fear", "anxiety", "worry", "hope", "dream", "wish",
}

var creativityMarkers = []string{
	"create", "creative", "art", "artist", "design", "music",
	"write", "writer", "imagination", "innovative", "unique",
	"original", "inspiration", "dream", "vision", "craft",
	"paint", "draw", "photography", "dance", "theater", "film",
}

// Metaphor-ish connectors; weak creativity signal.
var metaphorPhrases = []string{"like a", "as if", "reminds me of", "kind of like"}

var opennessMarkers = []string{
	"open", "new", "experience", "adventure", "explore", "discover",
	"learn", "grow", "change", "different", "variety", "curious",
	"interested", "willing", "try", "experiment", "challenge",
}

var positiveWords = []string{
	"happy", "joy", "love", "excited", "amazing", "wonderful",
	"great", "fantastic", "awesome", "brilliant", "beautiful",
}

var negativeWords = []string{
	"sad", "angry", "frustrated", "difficult", "hard", "struggle",
	"pain", "hurt", "disappointed", "worried", "anxious",
}

var stopWords = map[string]struct{}{
	"this": {}, "that": {}, "with": {}, "have": {}, "will": {},
	"from": {}, "they": {}, "been": {}, "their": {},
}

var intentKeywords = map[string][]string{
	IntentRomantic:     {"love", "relationship", "partner", "romance", "date"},
	IntentPlatonic:     {"friend", "friendship", "social", "hang out", "buddy"},
	IntentCreative:     {"create", "art", "project", "collaborate", "build"},
	IntentProfessional: {"work", "career", "business", "professional", "network"},
}
