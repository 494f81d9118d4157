package cli

import "adaptive-quiz-service/internal/domain"

// sampleQuestions is the built-in catalog for demo mode; production
// deployments seed Postgres via the seed command instead.
func sampleQuestions() []domain.Question {
	seeds := []struct {
		id         int64
		difficulty int
		prompt     string
		choices    []string
		answer     string
	}{
		{1, 1, "What is the capital of France?", []string{"Berlin", "Paris", "Madrid", "Rome"}, "Paris"},
		{2, 1, "How many continents are there?", []string{"5", "6", "7", "8"}, "7"},
		{3, 2, "Which planet is known as the Red Planet?", []string{"Earth", "Venus", "Mars", "Jupiter"}, "Mars"},
		{4, 2, "What gas do plants absorb from the atmosphere?", []string{"Oxygen", "Nitrogen", "Carbon dioxide", "Hydrogen"}, "Carbon dioxide"},
		{5, 3, "What is 15 multiplied by 4?", []string{"50", "60", "70", "80"}, "60"},
		{6, 3, "What is 100 minus 37?", []string{"61", "63", "65", "67"}, "63"},
		{7, 4, "Which element has the chemical symbol O?", []string{"Gold", "Silver", "Oxygen", "Iron"}, "Oxygen"},
		{8, 4, "What is the hardest natural substance on Earth?", []string{"Gold", "Iron", "Diamond", "Platinum"}, "Diamond"},
		{9, 5, "Who painted the Mona Lisa?", []string{"Van Gogh", "Picasso", "Da Vinci", "Monet"}, "Da Vinci"},
		{10, 5, "In which year did World War II end?", []string{"1943", "1944", "1945", "1946"}, "1945"},
		{11, 6, "What is the square root of 144?", []string{"10", "11", "12", "14"}, "12"},
		{12, 6, "What is 15% of 200?", []string{"25", "30", "35", "40"}, "30"},
		{13, 7, "Which planet has the most moons?", []string{"Jupiter", "Saturn", "Uranus", "Neptune"}, "Saturn"},
		{14, 7, "What is the chemical formula of table salt?", []string{"KCl", "NaCl", "CaCl2", "MgCl2"}, "NaCl"},
		{15, 8, "In what year was the first transistor invented?", []string{"1945", "1947", "1951", "1956"}, "1947"},
		{16, 8, "Which mathematician proved Fermat's Last Theorem?", []string{"Euler", "Gauss", "Wiles", "Riemann"}, "Wiles"},
		{17, 9, "What is the name of the closest spiral galaxy to the Milky Way?", []string{"Triangulum", "Andromeda", "Whirlpool", "Sombrero"}, "Andromeda"},
		{18, 9, "Which particle mediates the strong nuclear force?", []string{"Photon", "Gluon", "W boson", "Graviton"}, "Gluon"},
		{19, 10, "What is the only even prime number raised to the tenth power?", []string{"512", "1024", "2048", "4096"}, "1024"},
		{20, 10, "Which problem did the Cook-Levin theorem prove NP-complete?", []string{"SAT", "TSP", "Knapsack", "Clique"}, "SAT"},
	}

	questions := make([]domain.Question, 0, len(seeds))
	for _, s := range seeds {
		questions = append(questions, domain.Question{
			ID:                s.id,
			Difficulty:        s.difficulty,
			Prompt:            s.prompt,
			Choices:           s.choices,
			CorrectAnswerHash: domain.HashAnswer(s.answer),
		})
	}
	return questions
}
