// Package oauth1 signs requests with OAuth 1.0a (RFC 5849).
//
// Signer implements the algorithm: protocol parameters for the selected
// flow, canonical parameter list, signature base string and HMAC-SHA1,
// HMAC-SHA256 or PLAINTEXT signature. Authenticator plugs a Signer into a
// restclient.Client.
//
// Three-legged flow:
//
//	// 1. Temporary credentials.
//	client := restclient.New(
//	    restclient.WithBaseURL("https://api.example.com"),
//	    restclient.WithAuthenticator(oauth1.ForRequestToken(ck, cs, "https://app.example.com/cb")),
//	)
//	resp, _ := client.Execute(ctx, restclient.NewRequest("oauth/request_token", http.MethodPost))
//	rt, _ := oauth1.ParseTokenResponse(resp.RawBytes)
//
//	// 2. Redirect the user to the authorize URL and receive oauth_verifier.
//
//	// 3. Access token.
//	client = restclient.New(
//	    restclient.WithBaseURL("https://api.example.com"),
//	    restclient.WithAuthenticator(oauth1.ForAccessToken(ck, cs, rt.Token, rt.TokenSecret, verifier)),
//	)
//	resp, _ = client.Execute(ctx, restclient.NewRequest("oauth/access_token", http.MethodPost))
//	at, _ := oauth1.ParseTokenResponse(resp.RawBytes)
//
//	// 4. API calls.
//	api := restclient.New(
//	    restclient.WithBaseURL("https://api.example.com/1.1"),
//	    restclient.WithAuthenticator(at.AccessTokenAuthenticator(ck, cs)),
//	)
package oauth1
