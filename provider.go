package wikigate

// Endpoints describes a provider's OAuth 1.0a endpoint triplet plus the
// generic API endpoint used for authenticated calls. AuthorizeURL is a
// browser-navigation URL and is never signed.
type Endpoints struct {
	RequestTokenURL string
	AuthorizeURL    string
	AccessTokenURL  string
	APIURL          string
}

// WikimediaEndpoints returns the endpoint set for Wikimedia wikis. The
// title query parameter is how MediaWiki dispatches these special pages; it
// is part of the signed URL, and stripping or reordering it between signing
// and transmission breaks the signature.
func WikimediaEndpoints() Endpoints {
	return Endpoints{
		RequestTokenURL: "https://meta.wikimedia.org/w/index.php?title=Special:OAuth/initiate",
		AuthorizeURL:    "https://meta.wikimedia.org/wiki/Special:OAuth/authorize",
		AccessTokenURL:  "https://meta.wikimedia.org/w/index.php?title=Special:OAuth/token",
		APIURL:          "https://en.wikipedia.org/w/api.php",
	}
}
