package ses

import (
	"context"
	"errors"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sesv2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/magabrotheeeer/market-digest/internal/lib/sl"
	"github.com/magabrotheeeer/market-digest/internal/models"
)

type MockAPI struct {
	mock.Mock
}

func (m *MockAPI) SendEmail(ctx context.Context, params *sesv2.SendEmailInput, _ ...func(*sesv2.Options)) (*sesv2.SendEmailOutput, error) {
	args := m.Called(ctx, params)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*sesv2.SendEmailOutput), args.Error(1)
}

func TestTransport_Send(t *testing.T) {
	msg := models.Message{
		To:      "alice@example.com",
		Kind:    models.KindDigest,
		Subject: "Daily digest",
		Text:    "text",
		HTML:    "<p>html</p>",
	}

	t.Run("success", func(t *testing.T) {
		api := new(MockAPI)
		api.On("SendEmail", mock.Anything, mock.MatchedBy(func(in *sesv2.SendEmailInput) bool {
			return aws.ToString(in.FromEmailAddress) == `"Market Digest" <digest@example.com>` &&
				len(in.Destination.ToAddresses) == 1 &&
				in.Destination.ToAddresses[0] == "alice@example.com" &&
				aws.ToString(in.Content.Simple.Subject.Data) == "Daily digest" &&
				aws.ToString(in.Content.Simple.Body.Html.Data) == "<p>html</p>" &&
				aws.ToString(in.Content.Simple.Body.Text.Data) == "text"
		})).Return(&sesv2.SendEmailOutput{MessageId: aws.String("ses-123")}, nil).Once()

		tr := New(api, "digest@example.com", "Market Digest", sl.NewDiscard())
		id, err := tr.Send(context.Background(), msg)

		require.NoError(t, err)
		assert.Equal(t, "ses-123", id)
		api.AssertExpectations(t)
	})

	t.Run("provider error", func(t *testing.T) {
		api := new(MockAPI)
		api.On("SendEmail", mock.Anything, mock.Anything).Return(nil, errors.New("MessageRejected: Email address is not verified")).Once()

		tr := New(api, "digest@example.com", "", sl.NewDiscard())
		_, err := tr.Send(context.Background(), msg)

		require.Error(t, err)
		assert.Contains(t, err.Error(), "MessageRejected")
		api.AssertExpectations(t)
	})

	t.Run("text only body", func(t *testing.T) {
		api := new(MockAPI)
		api.On("SendEmail", mock.Anything, mock.MatchedBy(func(in *sesv2.SendEmailInput) bool {
			return in.Content.Simple.Body.Html == nil && in.Content.Simple.Body.Text != nil
		})).Return(&sesv2.SendEmailOutput{MessageId: aws.String("ses-456")}, nil).Once()

		tr := New(api, "digest@example.com", "", sl.NewDiscard())
		_, err := tr.Send(context.Background(), models.Message{To: "bob@example.com", Subject: "s", Text: "t"})

		require.NoError(t, err)
		api.AssertExpectations(t)
	})
}
