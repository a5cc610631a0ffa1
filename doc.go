// Package authkit implements cookie-based session authentication with
// short-lived signed access tokens and long-lived opaque refresh tokens.
//
// The [Engine] is the central orchestrator: it verifies credentials through a
// caller-supplied [UserProvider], mints token pairs through the token codec,
// and persists hashed refresh tokens in a pluggable [store.Store]. HTTP
// integration lives in the middleware, httpapi, and httpclient subpackages.
//
// Construction follows the builder pattern:
//
//	engine, err := authkit.New().
//		WithConfig(cfg).
//		WithStore(redisstore.NewStore(rdb, "rt")).
//		WithUserProvider(provider).
//		Build()
//
// Engines are immutable after Build and safe for concurrent use.
package authkit
