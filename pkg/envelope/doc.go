/*
Package envelope assembles the context envelope returned to agents.

An envelope carries three parts:

  - payload: the filtered fields of every fetched source, keyed by
    source name
  - provenance: where each field came from, which policy version
    decided the projection, who asked, and the size reduction the
    filter achieved
  - constraints: how the consumer may use the data (TTL, permitted
    actions, classification) and which fields were withheld

The envelope is digested over its RFC 8785 canonical JSON form so any
holder can later prove the payload and its provenance have not been
altered. The digest is embedded in the provenance block and excluded
from its own input.

Envelopes are built once, after every source has come back and been
filtered; nothing is streamed to the caller before assembly completes.
*/
package envelope
