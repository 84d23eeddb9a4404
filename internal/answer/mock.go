package answer

import "math/rand/v2"

var mockAnswers = []Result{
	{
		ShortAnswer: "Ampere (A) is the SI unit of electric current. It is named after André-Marie Ampère.",
		DetailedURL: "https://example.com/solution/electric-current-si-unit",
		SolutionID:  "phys_001",
	},
	{
		ShortAnswer: "Photosynthesis is the process where plants convert light energy into chemical energy, producing glucose and oxygen from CO2 and water.",
		DetailedURL: "https://example.com/solution/photosynthesis-definition",
		SolutionID:  "bio_001",
	},
	{
		ShortAnswer: "F = ma (Force equals mass times acceleration). It states that the force acting on an object is equal to the mass of that object times its acceleration.",
		DetailedURL: "https://example.com/solution/newtons-second-law",
		SolutionID:  "phys_002",
	},
	{
		ShortAnswer: "C₆H₁₂O₆ is the molecular formula of glucose. It's a simple sugar and the primary energy source for cells.",
		DetailedURL: "https://example.com/solution/glucose-formula",
		SolutionID:  "chem_001",
	},
	{
		ShortAnswer: "Osmosis is the movement of water molecules through a semi-permeable membrane from a region of higher concentration to lower concentration.",
		DetailedURL: "https://example.com/solution/osmosis-definition",
		SolutionID:  "bio_002",
	},
}

var mockImageAnswer = Result{
	ShortAnswer: "यह एक गणित का सवाल है। समीकरण को हल करने के लिए quadratic formula का उपयोग करें: x = (-b ± √(b²-4ac)) / 2a",
	DetailedURL: "https://example.com/solution/quadratic-equation-image",
	SolutionID:  "math_img_001",
}

// Mock serves canned answers when no answer service is reachable.
type Mock struct {
	pick func(n int) int
}

func NewMock() *Mock {
	return &Mock{pick: rand.IntN}
}

func (m *Mock) Answer() *Result {
	r := mockAnswers[m.pick(len(mockAnswers))]
	r.Success = true
	return &r
}

func (m *Mock) ImageAnswer() *Result {
	r := mockImageAnswer
	r.Success = true
	return &r
}
