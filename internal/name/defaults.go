package name

// defaultFemale and defaultMale are the bundled starter names, already canonical.
var defaultFemale = []string{
	"Amara", "Lily", "Hadley", "Olivia", "Emma", "Charlotte", "Amelia", "Sophia",
	"Isabella", "Ava", "Mia", "Evelyn", "Harper", "Luna", "Camila", "Gianna",
	"Elizabeth", "Eleanor", "Ella", "Abigail", "Sofia", "Avery", "Scarlett", "Emily",
	"Aria", "Penelope", "Chloe", "Layla", "Mila", "Nora", "Hazel", "Madison",
	"Ellie", "Lucy", "Zoey", "Nova", "Isla", "Grace", "Violet", "Aurora",
	"Riley", "Zoe", "Willow", "Emilia", "Stella", "Ivy", "Naomi", "Maeve",
	"Ana Sofia", "Mary Kate",
}

var defaultMale = []string{
	"Liam", "Noah", "Oliver", "James", "Elijah", "William", "Henry", "Lucas",
	"Benjamin", "Theodore", "Mateo", "Levi", "Sebastian", "Daniel", "Jack", "Michael",
	"Alexander", "Owen", "Asher", "Samuel", "Ethan", "Leo", "Jackson", "Mason",
	"Ezra", "John", "Hudson", "Luca", "Aiden", "Joseph", "David", "Jacob",
	"Logan", "Luke", "Julian", "Gabriel", "Grayson", "Wyatt", "Matthew", "Maverick",
	"Dylan", "Isaac", "Elias", "Anthony", "Thomas", "Jayden", "Carter", "Santiago",
	"D'Angelo", "Juan Pablo",
}

// Defaults returns the bundled default dataset as creatable fields with the given initial rating.
// Female names come first, then male names, each in a fixed order.
func Defaults(initialRating int) []Fields {
	out := make([]Fields, 0, len(defaultFemale)+len(defaultMale))
	for _, t := range defaultFemale {
		out = append(out, Fields{Text: t, Category: Female, Rating: initialRating})
	}
	for _, t := range defaultMale {
		out = append(out, Fields{Text: t, Category: Male, Rating: initialRating})
	}
	return out
}
