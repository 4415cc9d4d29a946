// Enricher is an HTTP intermediary that rewrites headers and JSON bodies of
// the requests and responses it forwards.
//
// Every request is one exchange. Request headers go through the header rules,
// the body is buffered to end of stream and run through the JSON body rules,
// and the result is forwarded upstream with a corrected Content-Length. The
// response travels back the same way.
//
// Usage:
//
//	# Start the proxy
//	enricher run --config config.yaml
//
//	# Check a configuration and its rules without starting
//	enricher validate --config config.yaml
//
//	# Apply the response body rules to a file
//	enricher transform --direction response --file body.json
//
//	# Show version information
//	enricher version
package main

func main() {
	Execute()
}
