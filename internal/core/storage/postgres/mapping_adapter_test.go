package postgres

import (
	"context"
	"errors"
	"regexp"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/require"
)

func TestMappingAdapter_Standardize(t *testing.T) {
	tests := []struct {
		name       string
		mockResult func(mock sqlmock.Sqlmock)
		wantEvent  string
		wantMapped bool
		wantErr    bool
	}{
		{
			name: "mapping found",
			mockResult: func(mock sqlmock.Sqlmock) {
				mock.ExpectQuery(regexp.QuoteMeta(queryLookupMapping)).
					WithArgs("viral_loops", "participant_joined", "p1").
					WillReturnRows(sqlmock.NewRows([]string{"standardized_event"}).AddRow("signup"))
			},
			wantEvent:  "signup",
			wantMapped: true,
		},
		{
			name: "no mapping keeps the original name",
			mockResult: func(mock sqlmock.Sqlmock) {
				mock.ExpectQuery(regexp.QuoteMeta(queryLookupMapping)).
					WithArgs("viral_loops", "participant_joined", "p1").
					WillReturnRows(sqlmock.NewRows([]string{"standardized_event"}))
			},
			wantEvent:  "participant_joined",
			wantMapped: false,
		},
		{
			name: "query failure is returned",
			mockResult: func(mock sqlmock.Sqlmock) {
				mock.ExpectQuery(regexp.QuoteMeta(queryLookupMapping)).
					WithArgs("viral_loops", "participant_joined", "p1").
					WillReturnError(errors.New("connection refused"))
			},
			wantErr: true,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			db, mock, err := sqlmock.New()
			require.NoError(t, err)
			defer db.Close()

			tc.mockResult(mock)

			res, err := NewMappingAdapter(db).Standardize(context.Background(), "viral_loops", "participant_joined", "p1")
			if tc.wantErr {
				require.ErrorContains(t, err, "failed to look up event mapping")
			} else {
				require.NoError(t, err)
				require.True(t, res.Success)
				require.Equal(t, tc.wantEvent, res.StandardizedEvent)
				require.Equal(t, tc.wantMapped, res.WasMapped)
			}
			require.NoError(t, mock.ExpectationsWereMet())
		})
	}
}
