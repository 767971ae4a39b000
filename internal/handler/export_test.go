package handler

// Export for testing
type CompileResponse = compileResponse
type ErrorResponse = errorResponse
type HealthResponse = healthResponse

var NewCompileHandlerHelper = NewCompileHandler

var WriteServiceError = writeServiceError
