package network

import (
	"crypto/md5"
	"encoding/hex"
	"net/url"
)

// sign computes the request signature: md5 over the sorted, url-encoded query followed by the app secret.
func sign(params url.Values, appSecret string) string {
	sum := md5.Sum([]byte(params.Encode() + appSecret))
	return hex.EncodeToString(sum[:])
}

func (c apiClient) signedQuery(creds Credentials) url.Values {
	params := url.Values{}
	params.Set("access_key", creds.AccessToken)
	if c.appKey != "" {
		params.Set("appkey", c.appKey)
	}
	params.Set("sign", sign(params, c.appSecret))
	return params
}
