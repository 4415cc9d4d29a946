/*
Package tls builds the listener TLS settings for the enricher.

# Server Configuration

	proxy:
	  tls:
	    enabled: true
	    cert_file: /etc/enricher/certs/server.crt
	    key_file: /etc/enricher/certs/server.key
	    min_version: "1.3"
	    reload_interval: 5m

NewServerConfig turns that block into a *tls.Config. The certificate is served
through GetCertificate from a Reloader, so a renewed key pair on disk is picked
up without restarting the listener:

	tlsConfig, reloader, err := tls.NewServerConfig(cfg.Proxy.TLS, logger)
	if err != nil {
		return err
	}
	go reloader.Run(ctx)

# Client Certificates

Setting client_ca_file makes the listener ask for client certificates and
verify them against that CA bundle. client_auth picks the policy:

  - require: a valid client certificate is mandatory (default)
  - request: ask for one, accept connections without it
  - verify_if_given: verify a certificate when one is sent
*/
package tls
