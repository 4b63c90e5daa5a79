package session

// DefaultCatalog is the built-in song pool used to seed new sessions and
// to back suggestions when no external search provider is configured.
var DefaultCatalog = []SongSuggestion{
	{
		Title:    "Blinding Lights",
		Artist:   "The Weeknd",
		Album:    "After Hours",
		Cover:    "https://i.scdn.co/image/ab67616d0000b2738863bc11d2aa12b54f5aeb36",
		Duration: 203,
	},
	{
		Title:    "As It Was",
		Artist:   "Harry Styles",
		Album:    "Harry's House",
		Cover:    "https://i.scdn.co/image/ab67616d0000b273b46f74097655d7f353caab14",
		Duration: 167,
	},
	{
		Title:    "Bad Guy",
		Artist:   "Billie Eilish",
		Album:    "When We All Fall Asleep, Where Do We Go?",
		Cover:    "https://i.scdn.co/image/ab67616d0000b273d55a1a1cd77bea3ec91b8971",
		Duration: 194,
	},
	{
		Title:    "Levitating",
		Artist:   "Dua Lipa",
		Album:    "Future Nostalgia",
		Cover:    "https://i.scdn.co/image/ab67616d0000b273bd26ede1ae69327010d49946",
		Duration: 203,
	},
	{
		Title:    "Peaches",
		Artist:   "Justin Bieber ft. Daniel Caesar, Giveon",
		Album:    "Justice",
		Cover:    "https://i.scdn.co/image/ab67616d0000b273e6f407c7f3a0ec98845e4431",
		Duration: 198,
	},
	{
		Title:    "Save Your Tears",
		Artist:   "The Weeknd & Ariana Grande",
		Album:    "After Hours",
		Cover:    "https://i.scdn.co/image/ab67616d0000b2738863bc11d2aa12b54f5aeb36",
		Duration: 215,
	},
	{
		Title:    "Stay",
		Artist:   "The Kid LAROI & Justin Bieber",
		Album:    "F*CK LOVE 3: OVER YOU",
		Cover:    "https://i.scdn.co/image/ab67616d0000b2739e690225ad4445530612cca9",
		Duration: 222,
	},
	{
		Title:    "good 4 u",
		Artist:   "Olivia Rodrigo",
		Album:    "SOUR",
		Cover:    "https://i.scdn.co/image/ab67616d0000b273a91c10fe9472d9bd89802e5a",
		Duration: 178,
	},
	{
		Title:    "Montero (Call Me By Your Name)",
		Artist:   "Lil Nas X",
		Album:    "MONTERO",
		Cover:    "https://i.scdn.co/image/ab67616d0000b2737d61a8fbb3d6142982c23993",
		Duration: 209,
	},
	{
		Title:    "drivers license",
		Artist:   "Olivia Rodrigo",
		Album:    "SOUR",
		Cover:    "https://i.scdn.co/image/ab67616d0000b273a91c10fe9472d9bd89802e5a",
		Duration: 244,
	},
}
