// Command oauthsign signs HTTP requests with OAuth 1.0a.
//
//	oauthsign sign --credentials creds.yaml --method POST \
//	    --url 'https://api.twitter.com/1.1/statuses/update.json?include_entities=true' \
//	    --param 'status=Hello Ladies + Gentlemen, a signed OAuth request!'
//
// prints the signature base string, the signature and the Authorization
// header. "oauthsign call" sends the signed request and prints the response.
package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/kroma-labs/sentinel-rest/oauth1"
	"github.com/kroma-labs/sentinel-rest/restclient"
)

type flags struct {
	credentials string
	flow        string
	method      string
	url         string
	params      []string
	nonce       string
	timestamp   int64
	timeout     time.Duration
	debug       bool
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	f := &flags{}

	root := &cobra.Command{
		Use:           "oauthsign",
		Short:         "Sign HTTP requests with OAuth 1.0a",
		SilenceErrors: true,
		SilenceUsage:  true,
	}

	root.PersistentFlags().StringVarP(&f.credentials, "credentials", "c", "", "YAML credentials file")
	root.PersistentFlags().StringVar(&f.flow, "flow", "protected-resource",
		"request-token, access-token, protected-resource or client-auth")
	root.PersistentFlags().StringVarP(&f.method, "method", "X", "GET", "HTTP method")
	root.PersistentFlags().StringVarP(&f.url, "url", "u", "", "request URL, query included")
	root.PersistentFlags().StringArrayVarP(&f.params, "param", "p", nil,
		"name=value request parameter (query for GET, form body for POST), repeatable")
	_ = root.MarkPersistentFlagRequired("credentials")
	_ = root.MarkPersistentFlagRequired("url")

	sign := &cobra.Command{
		Use:   "sign",
		Short: "Print the base string, signature and Authorization header",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runSign(cmd.OutOrStdout(), f)
		},
	}
	sign.Flags().StringVar(&f.nonce, "nonce", "", "fixed oauth_nonce")
	sign.Flags().Int64Var(&f.timestamp, "timestamp", 0, "fixed oauth_timestamp (Unix seconds)")

	call := &cobra.Command{
		Use:   "call",
		Short: "Send the signed request and print the response",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runCall(cmd.Context(), cmd.OutOrStdout(), cmd.ErrOrStderr(), f)
		},
	}
	call.Flags().DurationVar(&f.timeout, "timeout", restclient.DefaultTimeout, "request timeout")
	call.Flags().BoolVar(&f.debug, "debug", false, "log request and response")

	root.AddCommand(sign, call)
	return root
}

func (f *flags) request() (*restclient.Request, error) {
	req := restclient.NewRequest(f.url, f.method)
	for _, p := range f.params {
		name, value, ok := strings.Cut(p, "=")
		if !ok || name == "" {
			return nil, fmt.Errorf("invalid --param %q, want name=value", p)
		}
		req.AddQueryParameter(name, value)
	}
	return req, nil
}

func runSign(out io.Writer, f *flags) error {
	cf, err := loadCredentials(f.credentials)
	if err != nil {
		return err
	}
	flow, err := parseFlow(f.flow)
	if err != nil {
		return err
	}
	method, err := cf.signatureMethod()
	if err != nil {
		return err
	}

	req, err := f.request()
	if err != nil {
		return err
	}
	uri, err := restclient.BuildURI("", req)
	if err != nil {
		return err
	}

	var form []oauth1.Param
	if req.FormEncoded() {
		for _, p := range req.Parameters() {
			form = append(form, oauth1.Param{Name: p.Name, Value: p.String()})
		}
	}

	signer := oauth1.Signer{}
	if f.nonce != "" {
		signer.Nonce = func() string { return f.nonce }
	}
	if f.timestamp != 0 {
		signer.Clock = func() time.Time { return time.Unix(f.timestamp, 0) }
	}

	sig, err := signer.Sign(flow, method, cf.credentials(), oauth1.Input{
		Method: req.HTTPMethod(),
		URL:    uri,
		Form:   form,
	})
	if err != nil {
		return err
	}

	fmt.Fprintf(out, "Base string:   %s\n", sig.BaseString)
	fmt.Fprintf(out, "Signature:     %s\n", sig.Value)
	fmt.Fprintf(out, "Authorization: %s\n", sig.AuthorizationHeader(cf.Realm))
	return nil
}

func runCall(ctx context.Context, out, errOut io.Writer, f *flags) error {
	cf, err := loadCredentials(f.credentials)
	if err != nil {
		return err
	}
	flow, err := parseFlow(f.flow)
	if err != nil {
		return err
	}
	method, err := cf.signatureMethod()
	if err != nil {
		return err
	}
	req, err := f.request()
	if err != nil {
		return err
	}

	logger := zerolog.New(zerolog.ConsoleWriter{Out: errOut, TimeFormat: time.Kitchen}).
		With().
		Timestamp().
		Logger()

	auth := &oauth1.Authenticator{
		Type:            flow,
		Credentials:     cf.credentials(),
		SignatureMethod: method,
		Realm:           cf.Realm,
	}

	client := restclient.New(
		restclient.WithAuthenticator(auth),
		restclient.WithTimeout(f.timeout),
		restclient.WithLogger(logger),
		restclient.WithDebug(f.debug),
	)

	resp, err := client.Execute(ctx, req)
	if err != nil {
		return err
	}
	if resp.ResponseStatus != restclient.Completed {
		return fmt.Errorf("request %s: %s", resp.ResponseStatus, resp.ErrorMessage)
	}

	fmt.Fprintf(out, "%d %s\n", resp.StatusCode, resp.StatusDescription)
	fmt.Fprintln(out, resp.Content)
	return nil
}
