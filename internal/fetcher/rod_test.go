package fetcher

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tubelinks/internal/domain"
)

func TestVideoFromPlayer(t *testing.T) {
	const id = domain.VideoID("dQw4w9WgXcQ")

	tests := []struct {
		name    string
		state   playerState
		wantErr error
		want    domain.Video
	}{
		{
			name:  "playable",
			state: playerState{Found: true, Status: "OK", Title: "T", Description: "see https://a.com"},
			want:  domain.Video{ID: id, Title: "T", Description: "see https://a.com"},
		},
		{
			name:  "playable with empty description",
			state: playerState{Found: true, Status: "OK", Title: "T"},
			want:  domain.Video{ID: id, Title: "T"},
		},
		{
			name:    "removed video",
			state:   playerState{Found: false, Status: "ERROR"},
			wantErr: domain.ErrNotFound,
		},
		{
			name:    "private video",
			state:   playerState{Found: false, Status: "LOGIN_REQUIRED"},
			wantErr: domain.ErrNotFound,
		},
		{
			name:    "no details",
			state:   playerState{Found: false, Status: "OK"},
			wantErr: domain.ErrNotFound,
		},
		{
			name:    "interstitial page",
			state:   playerState{Found: false, Status: "MISSING"},
			wantErr: domain.ErrTransient,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := videoFromPlayer(id, tt.state)
			if tt.wantErr != nil {
				require.Error(t, err)
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}
