// Package restclient builds, authenticates and executes requests against
// REST APIs and maps the results into a uniform Response.
//
// # Requests
//
// A Request is a resource path, an HTTP method and a list of parameters
// tagged with where they go on the wire:
//
//	req := restclient.NewRequest("users/{id}/posts", http.MethodGet).
//	    AddURLSegment("id", 42).            // users/42/posts
//	    AddQueryParameter("page", 2).       // ?page=2 (form body for POST/PUT/PATCH)
//	    AddHeader("Accept", "application/json").
//	    AddCookie("session", "abc")
//
// Bodies are RequestBody parameters whose name is the content type:
//
//	req := restclient.NewRequest("users", http.MethodPost).
//	    AddJSONBody(User{Name: "john"})
//
// # Pipeline
//
// Client.Execute runs, for every attempt:
//
//  1. Clone the request.
//  2. Run the Authenticator on the clone (e.g. OAuth 1.0a signing).
//  3. Merge client default parameters (MergeParameters).
//  4. Build the final URL (BuildURI).
//  5. Resolve headers, cookies, form parameters, body, user agent and
//     timeout (NewTransportRequest).
//  6. Dispatch through the Transport and map the result (NewResponse,
//     FailedResponse).
//
// Each step is an exported function so it can be used and tested alone.
//
// # Responses
//
// Execute returns an error only when the request cannot be built or
// authenticated. Everything else, including 4xx/5xx and network failures,
// is a Response:
//
//	resp, err := client.Execute(ctx, req)
//	if err != nil {
//	    return err
//	}
//	switch {
//	case resp.ResponseStatus != restclient.Completed:
//	    log.Printf("transport failure (%s): %s", resp.ResponseStatus, resp.ErrorMessage)
//	case resp.IsError():
//	    log.Printf("API error %d: %s", resp.StatusCode, resp.Content)
//	default:
//	    fmt.Println(resp.JSON("data.name").String())
//	}
//
// # Resilience
//
// Retries re-run the whole pipeline so signed requests get a fresh nonce on
// every attempt:
//
//	client := restclient.New(
//	    restclient.WithBaseURL("https://api.example.com"),
//	    restclient.WithRetryConfig(restclient.DefaultRetryConfig()),
//	    restclient.WithCircuitBreaker(restclient.DefaultBreakerConfig()),
//	    restclient.WithRateLimit(restclient.DefaultRateLimitConfig()),
//	)
//
// # Observability
//
// The HTTP transport creates OpenTelemetry client spans and records
// http.client.* metrics. Execute wraps all attempts in one span and adds a
// span event per retry. WithDebug logs requests and responses through
// zerolog; WithGenerateCurl attaches a cURL command to every Response.
//
// # Testing
//
// MockTransport replaces the network:
//
//	mock := restclient.NewMockTransport().StubResponse(http.StatusOK, `{"ok":true}`)
//	client := restclient.New(restclient.WithMockTransport(mock))
package restclient
