// Package rest is a JSON-only client built on the HTTP adapter.
//
// Requests are sent as application/json and only JSON responses are decoded;
// anything else is left in Response.Raw.
//
//	client, err := rest.New(httpclient.Config{
//	    BaseURL: "https://api.example.com",
//	    Auth:    httpclient.BearerAuth("token"),
//	    Retry:   httpclient.DefaultRetryConfig(),
//	})
//
//	user, err := rest.Get[User](ctx, client, "/users/123")
//	created, err := rest.Post[User](ctx, client, "/users", CreateUserRequest{Name: "Alice"})
package rest
