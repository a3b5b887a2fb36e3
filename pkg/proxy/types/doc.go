// Package types defines the wire-level error shape shared by the
// proxy's handlers and middleware.
//
// Every error leaving the proxy has the same JSON body:
//
//	{
//	  "error": {
//	    "code": "authorization_denied",
//	    "message": "agent \"marketing-agent\" is not granted intent \"loan_assessment\"",
//	    "request_id": "9f1c1a6e-..."
//	  }
//	}
//
// The code determines the HTTP status; see ErrorDetail.HTTPStatusCode.
// Successful responses are context envelopes and are defined by the
// envelope package, not here.
package types
