package parser

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
	"go.uber.org/mock/gomock"

	"certwallet/internal/wallet/domain/issuer"
	"certwallet/internal/wallet/fetch"
	"certwallet/internal/wallet/fetch/mocks"
)

type IssuerParserSuite struct {
	suite.Suite
	ctx     context.Context
	ctrl    *gomock.Controller
	fetcher *mocks.MockFetcher
	parser  *Parser
}

func TestIssuerParserSuite(t *testing.T) {
	suite.Run(t, new(IssuerParserSuite))
}

func (s *IssuerParserSuite) SetupTest() {
	s.ctx = context.Background()
	s.ctrl = gomock.NewController(s.T())
	s.fetcher = mocks.NewMockFetcher(s.ctrl)
	s.parser = New(WithImageFetcher(s.fetcher))
}

func (s *IssuerParserSuite) TearDownTest() {
	s.ctrl.Finish()
}

func (s *IssuerParserSuite) TestRoundTrip() {
	tests := []struct {
		name    string
		doc     map[string]any
		version issuer.Version
		modeled []string
	}{
		{"embedded", embeddedIssuerDoc(), issuer.VersionEmbedded,
			[]string{"id", "name", "email", "image", "url", "revocationList"}},
		{"v1", v1IssuerDoc(), issuer.VersionV1,
			[]string{"id", "name", "email", "image", "url", "revocationList", "version", "introductionURL", "issuerKeys"}},
		{"v2", v2IssuerDoc(), issuer.VersionV2,
			[]string{"id", "name", "email", "image", "url", "revocationList", "@context", "introductionAuthenticationMethod", "introductionURL", "publicKey"}},
	}

	for _, tt := range tests {
		s.Run(tt.name, func() {
			profile, err := s.parser.ParseIssuer(s.ctx, tt.doc)
			s.Require().NoError(err)
			s.Equal(tt.version, profile.Version())

			out := IssuerToDocument(profile)
			for _, field := range tt.modeled {
				s.Equal(tt.doc[field], out[field], field)
			}

			again, err := s.parser.ParseIssuer(s.ctx, out)
			s.Require().NoError(err)
			s.Equal(profile, again)
		})
	}
}

func (s *IssuerParserSuite) TestEmbeddedDefaults() {
	profile, err := s.parser.ParseIssuer(s.ctx, without(embeddedIssuerDoc(), "revocationList"))

	s.Require().NoError(err)
	s.Empty(profile.RevocationList())
	s.Empty(profile.Keys())
	s.Equal(issuer.IntroductionUnknown, profile.Introduction().Method)
	s.Equal("image/png", profile.Image().MediaType())
	s.Equal(pngPixel, profile.Image().Data())
}

func (s *IssuerParserSuite) TestMissingMandatoryField() {
	docs := map[string]map[string]any{
		"embedded": embeddedIssuerDoc(),
		"v1":       v1IssuerDoc(),
		"v2":       v2IssuerDoc(),
	}
	for name, doc := range docs {
		for _, field := range []string{"name", "email", "image", "id", "url"} {
			s.Run(name+" without "+field, func() {
				_, err := s.parser.ParseIssuer(s.ctx, without(doc, field))

				s.Require().Error(err)
				s.True(errors.Is(err, ErrMissingField))
				s.False(errors.Is(err, ErrInvalidField))

				var pe *ParseError
				s.Require().ErrorAs(err, &pe)
				s.Equal([]string{field}, pe.Fields())
			})
		}
	}
}

func (s *IssuerParserSuite) TestNullCountsAsMissing() {
	_, err := s.parser.ParseIssuer(s.ctx, with(embeddedIssuerDoc(), "email", nil))

	s.True(errors.Is(err, ErrMissingField))
	s.Equal("email", FieldOf(err))
}

func (s *IssuerParserSuite) TestMalformedField() {
	tests := []struct {
		field string
		value any
	}{
		{"name", 42},
		{"email", ""},
		{"id", "not a uri"},
		{"url", []any{"https://example.org"}},
		{"image", "data:image/png;base64,***"},
		{"image", "logo.png"},
		{"revocationList", "revocations.json"},
	}
	for _, tt := range tests {
		s.Run(tt.field, func() {
			_, err := s.parser.ParseIssuer(s.ctx, with(embeddedIssuerDoc(), tt.field, tt.value))

			s.Require().Error(err)
			s.True(errors.Is(err, ErrInvalidField))
			s.Equal(tt.field, FieldOf(err))
		})
	}
}

func (s *IssuerParserSuite) TestRemoteImage() {
	const logo = "https://issuer.example.org/logo.png"

	s.Run("fetched and sniffed", func() {
		s.fetcher.EXPECT().Fetch(gomock.Any(), logo).Return(pngPixel, nil)

		profile, err := s.parser.ParseIssuer(s.ctx, with(embeddedIssuerDoc(), "image", logo))

		s.Require().NoError(err)
		s.Equal("image/png", profile.Image().MediaType())
		s.Equal(pngDataURI, IssuerToDocument(profile)["image"])
	})

	s.Run("unfetchable is invalid not missing", func() {
		s.fetcher.EXPECT().Fetch(gomock.Any(), logo).
			Return(nil, fetch.NewFetchError(fetch.ErrorNotFound, logo, "document not found", nil))

		_, err := s.parser.ParseIssuer(s.ctx, with(embeddedIssuerDoc(), "image", logo))

		s.True(errors.Is(err, ErrInvalidField))
		s.False(errors.Is(err, ErrMissingField))
		s.Equal("image", FieldOf(err))
		s.Equal(fetch.ErrorNotFound, fetch.GetCategory(err))
	})

	s.Run("undecodable payload is invalid", func() {
		s.fetcher.EXPECT().Fetch(gomock.Any(), logo).Return([]byte("<html>gone</html>"), nil)

		_, err := s.parser.ParseIssuer(s.ctx, with(embeddedIssuerDoc(), "image", logo))

		s.Equal("image", FieldOf(err))
		s.True(errors.Is(err, ErrInvalidField))
	})

	s.Run("not fetched when another field already failed", func() {
		doc := without(with(embeddedIssuerDoc(), "image", logo), "name")

		_, err := s.parser.ParseIssuer(s.ctx, doc)

		s.Equal("name", FieldOf(err))
	})

	s.Run("rejected without a fetcher", func() {
		_, err := New().ParseIssuer(s.ctx, with(embeddedIssuerDoc(), "image", logo))

		s.Equal("image", FieldOf(err))
		s.ErrorIs(err, errRemoteImagesDisabled)
	})
}

func (s *IssuerParserSuite) TestAggregatesFieldErrors() {
	doc := with(without(embeddedIssuerDoc(), "name"), "url", "relative/path")

	_, err := s.parser.ParseIssuer(s.ctx, doc)

	var pe *ParseError
	s.Require().ErrorAs(err, &pe)
	s.ElementsMatch([]string{"name", "url"}, pe.Fields())
	s.True(errors.Is(err, ErrMissingField))
	s.True(errors.Is(err, ErrInvalidField))
}

func (s *IssuerParserSuite) TestVersionDetection() {
	s.Run("unknown version tag", func() {
		_, err := s.parser.ParseIssuer(s.ctx, with(embeddedIssuerDoc(), "version", "3"))

		s.True(errors.Is(err, ErrUnsupportedVersion))
		var ve *VersionError
		s.Require().ErrorAs(err, &ve)
		s.Equal("3", ve.Version)
	})

	s.Run("non string version tag", func() {
		_, err := s.parser.ParseIssuer(s.ctx, with(embeddedIssuerDoc(), "version", 2.0))

		s.True(errors.Is(err, ErrInvalidField))
		s.Equal("version", FieldOf(err))
	})

	s.Run("unknown context", func() {
		_, err := s.parser.ParseIssuer(s.ctx, with(embeddedIssuerDoc(), "@context", "https://example.org/v9"))

		s.True(errors.Is(err, ErrUnsupportedVersion))
	})

	s.Run("explicit v2 tag", func() {
		doc := with(without(v2IssuerDoc(), "@context"), "version", "2")

		profile, err := s.parser.ParseIssuer(s.ctx, doc)

		s.Require().NoError(err)
		s.Equal(issuer.VersionV2, profile.Version())
	})
}

func (s *IssuerParserSuite) TestV1KeysHaveImplicitIntervals() {
	profile, err := s.parser.ParseIssuer(s.ctx, v1IssuerDoc())
	s.Require().NoError(err)

	k, ok := profile.KeyAt(time.Date(2020, 6, 1, 0, 0, 0, 0, time.UTC))
	s.True(ok)
	s.Equal("1Key2020", k.Key)

	k, ok = profile.KeyAt(time.Date(2022, 1, 1, 0, 0, 0, 0, time.UTC))
	s.True(ok)
	s.Equal("1Key2021", k.Key)

	s.Equal(issuer.IntroductionWeb, profile.Introduction().Method)
}

func (s *IssuerParserSuite) TestV1WithoutIntroductionURL() {
	profile, err := s.parser.ParseIssuer(s.ctx, without(v1IssuerDoc(), "introductionURL"))

	s.Require().NoError(err)
	s.Equal(issuer.IntroductionNone, profile.Introduction().Method)
}

func (s *IssuerParserSuite) TestV2Keys() {
	s.Run("two open ended keys", func() {
		doc := with(v2IssuerDoc(), "publicKey", []any{
			map[string]any{"id": "k1", "created": "2020-01-01T00:00:00Z"},
			map[string]any{"id": "k2", "created": "2021-01-01T00:00:00Z"},
		})

		_, err := s.parser.ParseIssuer(s.ctx, doc)

		s.True(errors.Is(err, ErrInvalidField))
		s.Equal("publicKey", FieldOf(err))
	})

	s.Run("entry without created", func() {
		doc := with(v2IssuerDoc(), "publicKey", []any{map[string]any{"id": "k1"}})

		_, err := s.parser.ParseIssuer(s.ctx, doc)

		s.Equal("publicKey", FieldOf(err))
	})

	s.Run("not a list", func() {
		_, err := s.parser.ParseIssuer(s.ctx, with(v2IssuerDoc(), "publicKey", "k1"))

		s.Equal("publicKey", FieldOf(err))
	})

	s.Run("absent defaults to no keys", func() {
		profile, err := s.parser.ParseIssuer(s.ctx, without(v2IssuerDoc(), "publicKey"))

		s.Require().NoError(err)
		s.Empty(profile.Keys())
	})

	s.Run("unrecognised introduction method", func() {
		profile, err := s.parser.ParseIssuer(s.ctx, with(v2IssuerDoc(), "introductionAuthenticationMethod", "fax"))

		s.Require().NoError(err)
		s.Equal(issuer.IntroductionUnknown, profile.Introduction().Method)
	})
}

func TestParseIssuerBytes_FetchesRemoteImageOverHTTP(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write(pngPixel)
	}))
	defer srv.Close()

	p := New(WithImageFetcher(fetch.New(fetch.Config{MaxBytes: 1024}, fetch.WithHTTPClient(srv.Client()))))
	raw := []byte(`{"id":"https://issuer.example.org/profile.json","name":"Example","email":"a@example.org",` +
		`"url":"https://example.org","image":"` + srv.URL + `/logo.png"}`)

	profile, err := p.ParseIssuerBytes(context.Background(), raw)

	require.NoError(t, err)
	assert.Equal(t, pngPixel, profile.Image().Data())
}

func TestParseIssuerBytes_Malformed(t *testing.T) {
	for _, raw := range []string{`{`, `null`, `[]`} {
		_, err := New().ParseIssuerBytes(context.Background(), []byte(raw))
		assert.ErrorIs(t, err, ErrMalformedDocument, raw)
	}
}
