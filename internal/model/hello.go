package model

type HelloRequest struct {
	Name  string `json:"name"`
	Name2 string `json:"name2"`
}

type HelloResponse struct {
	Name string `json:"name"`
}

// ErrorResponse is the body of every failed request.
type ErrorResponse struct {
	Status  int    `json:"status"`
	Code    string `json:"code"`
	Message string `json:"message"`
}
