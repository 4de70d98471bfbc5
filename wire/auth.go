package wire

import (
	"net/url"

	"github.com/sensorcloud-go/sensorcloud/errs"
	"github.com/sensorcloud-go/sensorcloud/format"
	"github.com/sensorcloud-go/sensorcloud/xdr"
)

// AuthResponse is the decoded body of a successful authenticate call.
type AuthResponse struct {
	// Token is the opaque auth_token for subsequent calls.
	Token string
	// Server is the API host name, without scheme.
	Server string
}

// AuthQuery returns the query parameters of an authenticate call. The request
// is a GET, so the query is its entire encoding. Empty osVersion and localIP
// are omitted.
func AuthQuery(deviceKey, osVersion, localIP string) url.Values {
	q := url.Values{}
	q.Set("version", format.APIVersion)
	q.Set("key", deviceKey)
	if osVersion != "" {
		q.Set("os_version", osVersion)
	}
	if localIP != "" {
		q.Set("local_ip", localIP)
	}

	return q
}

// DecodeAuthResponse decodes the token and server strings of an authenticate
// response. Any trailing fields are ignored.
func DecodeAuthResponse(data []byte) (AuthResponse, error) {
	dec := xdr.NewDecoder(data)

	token, err := dec.String(MaxStringLen)
	if err != nil {
		return AuthResponse{}, err
	}
	server, err := dec.String(MaxStringLen)
	if err != nil {
		return AuthResponse{}, err
	}
	if token == "" {
		return AuthResponse{}, errs.Formatf("authenticate response carries an empty token")
	}
	if server == "" {
		return AuthResponse{}, errs.Formatf("authenticate response carries an empty server")
	}

	return AuthResponse{Token: token, Server: server}, nil
}
