// Package satchel is a server-side session container with flash values.
//
// A Session coordinates one request. It owns a Container of namespaced
// values and drives a Handler, which persists payloads and carries the
// session identifier. StoreHandler is the bundled Handler; it keeps payloads
// in any Store from the storage package (memory, redis, badger).
//
// Flash values are set with an expiry policy:
//
//	sess.Data().Set("notice", "saved", satchel.ExpireOnGet)     // gone after the request that reads it
//	sess.Data().Set("step", 2, satchel.ExpireOnRequest)         // gone after the next request
//
// Expired values are never hidden mid-request. They are evicted when the
// next payload is loaded (ExpireOnRequest) or when the current one is
// persisted (ExpireOnGet).
//
// Identifiers are rotated lazily: Write and Stop regenerate the identifier
// once the rotation deadline has passed, before the payload is persisted.
//
// With gin:
//
//	cfg, _ := satchel.LoadConfig("session.yaml")
//	store, _ := satchel.CreateStore(ctx, cfg)
//	manager, _ := satchel.NewManager(store, cfg)
//	defer manager.Close()
//
//	r := gin.New()
//	r.Use(manager.Middleware())
//	r.GET("/", func(c *gin.Context) {
//	    sess := satchel.MustFromContext(c)
//	    n, _ := sess.Data().GetInt("visits")
//	    _ = sess.Data().Set("visits", n+1)
//	    c.String(http.StatusOK, "hello")
//	})
package satchel
