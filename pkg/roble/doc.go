/*
Package roble provides a client for the Roble Backend-as-a-Service platform:
authentication, session management with automatic token refresh, and
table-oriented database access.

# Client and Session

A Client targets one deployment (base URL + project) and owns exactly one
session. Construct it once and reuse it across calls:

	client, err := roble.New(roble.Config{
		BaseURL: "https://roble.example.com",
		Project: "inventory_a1b2c3",
	})
	if err != nil {
		log.Fatal(err)
	}

	err = client.Authenticate(ctx, roble.Credentials{
		Email:    "user@example.com",
		Password: "secret",
	})

Every subsequent call attaches the session's access token and transparently
handles expiry:

 1. An expired access token is refreshed before the request goes out.
 2. A 401/403 response triggers exactly one refresh-and-resend cycle.
 3. A rejected refresh clears the session; re-authenticate to continue.

The request is sent at most twice per call, so a service that rejects even
fresh tokens cannot cause a retry loop.

# Database access

Rows are opaque maps keyed by column name; the service assigns an "_id"
column used to target updates and deletes:

	rows, err := client.Read(ctx, "Product", nil)

	inserted, err := client.Insert(ctx, "Product", []roble.Record{
		{"name": "Widget", "quantity": 3},
	})

	err = client.Update(ctx, "Product", id, roble.Record{"quantity": 4})
	err = client.Delete(ctx, "Product", id)

Endpoints without a typed helper are reachable through Do with a Request
spec.

# Error handling

All failures are typed. Authentication failures are *AuthError and API
failures are *APIError; both carry a kind matchable with errors.Is against
the package sentinels:

	_, err := client.Read(ctx, "Product", nil)
	switch {
	case errors.Is(err, roble.ErrNotAuthenticated):
		// no session: call Authenticate first
	case errors.Is(err, roble.ErrRefreshRejected):
		// session torn down: credentials needed again
	case errors.Is(err, roble.ErrServerError):
		// service-side failure; retrying is the caller's policy decision
	}

The client never retries 5xx or transport failures on its own: whether a
retry is safe depends on the operation's idempotence, which an opaque
payload cannot reveal.

# Concurrency

A Client is safe for concurrent use. Concurrent calls that observe an
expired token coalesce into a single refresh; the losers of the race reuse
the winner's token instead of issuing duplicate refresh calls.

# Tokens

Tokens live only in process memory for the lifetime of the Client. To carry
a session across processes, export it with Tokens and seed the next Client
with RestoreSession.
*/
package roble
