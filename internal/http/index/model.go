package index

// GetOutput is the response of the index operation.
type GetOutput struct {
	Location string `header:"Location" doc:"URI of the index resource"`
	Body     string `example:"Hello world!"`
}
