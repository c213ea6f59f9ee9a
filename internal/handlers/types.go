package handlers

type ClassifyResponse struct {
	Categories []string `json:"categories"`
}

type ErrorResponse struct {
	Error string `json:"error"`
}

type HealthResponse struct {
	Status string `json:"status"`
	Model  string `json:"model"`
	Labels int    `json:"labels"`
}
