package chessdto

type AnalyzeResponse struct {
	Score    float64 `json:"score"`
	BestMove string  `json:"best_move"`
	Depth    int     `json:"depth"`
}
