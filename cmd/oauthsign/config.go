package main

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/kroma-labs/sentinel-rest/oauth1"
)

// credentialsFile is the YAML layout of --credentials.
//
//	consumer_key: xvz1evFS4wEEPTGEFPHBog
//	consumer_secret: kAcSOqF21Fu85e7zjz7ZN2U4ZRhfV3WpwPAoE3Z7kBw
//	token: 370773112-GmHxMAgYyLbNEtIKZeRNFsMKPR9EyMZeS9weJAEb
//	token_secret: LswwdoUaIvS8ltyTt5jkRh4J50vUPVVHtR2YPi5kE
type credentialsFile struct {
	ConsumerKey     string `yaml:"consumer_key"`
	ConsumerSecret  string `yaml:"consumer_secret"`
	Token           string `yaml:"token"`
	TokenSecret     string `yaml:"token_secret"`
	Verifier        string `yaml:"verifier"`
	SessionHandle   string `yaml:"session_handle"`
	CallbackURL     string `yaml:"callback_url"`
	Username        string `yaml:"username"`
	Password        string `yaml:"password"`
	Realm           string `yaml:"realm"`
	SignatureMethod string `yaml:"signature_method"`
}

func loadCredentials(path string) (*credentialsFile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read credentials: %w", err)
	}

	var cf credentialsFile
	if err := yaml.Unmarshal(data, &cf); err != nil {
		return nil, fmt.Errorf("parse credentials %s: %w", path, err)
	}
	return &cf, nil
}

func (cf *credentialsFile) credentials() oauth1.Credentials {
	return oauth1.Credentials{
		ConsumerKey:    cf.ConsumerKey,
		ConsumerSecret: cf.ConsumerSecret,
		Token:          cf.Token,
		TokenSecret:    cf.TokenSecret,
		Verifier:       cf.Verifier,
		SessionHandle:  cf.SessionHandle,
		CallbackURL:    cf.CallbackURL,
		Username:       cf.Username,
		Password:       cf.Password,
	}
}

func (cf *credentialsFile) signatureMethod() (oauth1.SignatureMethod, error) {
	switch m := oauth1.SignatureMethod(strings.ToUpper(cf.SignatureMethod)); m {
	case "":
		return oauth1.HMACSHA1, nil
	case oauth1.HMACSHA1, oauth1.HMACSHA256, oauth1.PlainText:
		return m, nil
	default:
		return "", fmt.Errorf("%w: %q", oauth1.ErrUnsupportedSignatureMethod, cf.SignatureMethod)
	}
}

func parseFlow(s string) (oauth1.OAuthType, error) {
	switch strings.ToLower(s) {
	case "request-token":
		return oauth1.RequestToken, nil
	case "access-token":
		return oauth1.AccessToken, nil
	case "", "protected-resource":
		return oauth1.ProtectedResource, nil
	case "client-auth":
		return oauth1.ClientAuthentication, nil
	default:
		return 0, fmt.Errorf(
			"unknown flow %q (want request-token, access-token, protected-resource or client-auth)", s)
	}
}
