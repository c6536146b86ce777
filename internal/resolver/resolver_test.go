package resolver

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xcam/rec-engine/internal/xcam"
)

type fakeAPI struct {
	info  *xcam.LiveInfo
	err   error
	calls int
}

func (f *fakeAPI) LiveInfo(ctx context.Context, username string) (*xcam.LiveInfo, error) {
	f.calls++
	return f.info, f.err
}

func TestResolve_previewHintWins(t *testing.T) {
	api := &fakeAPI{info: &xcam.LiveInfo{CDNURL: "http://cdn/x.m3u8"}}
	r := New(api, nil)

	url, err := r.Resolve(context.Background(), xcam.Broadcast{
		Username: "alice",
		Preview:  xcam.Preview{Src: "http://preview/stream.m3u8"},
	})

	require.NoError(t, err)
	assert.Equal(t, "http://preview/stream.m3u8", url)
	assert.Zero(t, api.calls, "live info must not be queried when the hint is present")
}

func TestResolve_fallbackOrder(t *testing.T) {
	tests := []struct {
		name    string
		info    xcam.LiveInfo
		want    string
		wantErr error
	}{
		{
			name: "cdn preferred over edge when both present",
			info: xcam.LiveInfo{CDNURL: "http://cdn/x.m3u8", EdgeURL: "http://edge/x.m3u8"},
			want: "http://cdn/x.m3u8",
		},
		{
			name: "edge used only when cdn absent",
			info: xcam.LiveInfo{EdgeURL: "http://edge/x.m3u8"},
			want: "http://edge/x.m3u8",
		},
		{
			name:    "fails when both absent",
			info:    xcam.LiveInfo{},
			wantErr: ErrNoStream,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			api := &fakeAPI{info: &tt.info}
			r := New(api, nil)

			url, err := r.Resolve(context.Background(), xcam.Broadcast{Username: "bob"})
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, url)
			assert.Equal(t, 1, api.calls)
		})
	}
}

func TestResolve_liveInfoError(t *testing.T) {
	api := &fakeAPI{err: errors.New("api down")}
	r := New(api, nil)

	_, err := r.Resolve(context.Background(), xcam.Broadcast{Username: "carol"})
	assert.Error(t, err)
}
