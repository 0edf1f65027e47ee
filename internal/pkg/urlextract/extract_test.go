package urlextract

import (
	"reflect"
	"testing"
)

func TestExtract(t *testing.T) {
	cases := []struct {
		name string
		text string
		want []Match
	}{
		{
			name: "empty",
			text: "   ",
			want: nil,
		},
		{
			name: "case variants collapse",
			text: "See https://example.com/a and https://Example.com/a",
			want: []Match{{URL: "https://example.com/a", Domain: "example.com"}},
		},
		{
			name: "order preserved",
			text: "first http://b.org/x then https://a.gov/y?q=1 and again http://b.org/x",
			want: []Match{
				{URL: "http://b.org/x", Domain: "b.org"},
				{URL: "https://a.gov/y?q=1", Domain: "a.gov"},
			},
		},
		{
			name: "trailing punctuation trimmed",
			text: "Read https://eclkc.ohs.acf.hhs.gov/x. Also (https://headstart.gov/y).",
			want: []Match{
				{URL: "https://eclkc.ohs.acf.hhs.gov/x", Domain: "eclkc.ohs.acf.hhs.gov"},
				{URL: "https://headstart.gov/y", Domain: "headstart.gov"},
			},
		},
		{
			name: "balanced parens kept",
			text: "https://en.wikipedia.org/wiki/Head_Start_(program)",
			want: []Match{{URL: "https://en.wikipedia.org/wiki/Head_Start_(program)", Domain: "en.wikipedia.org"}},
		},
		{
			name: "ipv4 port and userinfo",
			text: "ftp://user:pw@10.0.0.12:2121/files and SFTP://HOST.Example.NET/in",
			want: []Match{
				{URL: "ftp://user:pw@10.0.0.12:2121/files", Domain: "10.0.0.12"},
				{URL: "sftp://host.example.net/in", Domain: "host.example.net"},
			},
		},
		{
			name: "undetectable hosts dropped",
			text: "http://localhost/a http://999.1.1.1/b https://example.community/c mailto:a@b.com",
			want: []Match{},
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := Extract(tc.text)
			if len(tc.want) == 0 && len(got) == 0 {
				return
			}
			if !reflect.DeepEqual(got, tc.want) {
				t.Fatalf("want=%+v got=%+v", tc.want, got)
			}
		})
	}
}

func TestExtractPtrNil(t *testing.T) {
	if got := ExtractPtr(nil); got != nil {
		t.Fatalf("nil text: want nil got=%+v", got)
	}
}

func TestDomain(t *testing.T) {
	if d, ok := Domain("https://WWW.Example.org:8443/path"); !ok || d != "www.example.org" {
		t.Fatalf("domain: got=%q ok=%v", d, ok)
	}
	if _, ok := Domain("not a url"); ok {
		t.Fatalf("expected failure for non-url")
	}
}
