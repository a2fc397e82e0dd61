package service

import (
	"storefront-support/backend/ai"
	"storefront-support/backend/internal/knowledge"
)

// ErrorInternal is the error label returned with InternalErrorReply
const ErrorInternal = "Internal server error"

// InternalErrorReply is returned when the conversation store fails
const InternalErrorReply = "I'm sorry, something went wrong. Please try again or contact our support team at " +
	knowledge.SupportEmail + " for help."

const (
	rateLimitedReply = "I'm sorry, we're experiencing high traffic right now. Please try again in a moment. 🙏"

	unauthorizedReply = "I'm having trouble connecting to my brain right now. Our team has been notified. " +
		"Please try again later or contact " + knowledge.SupportEmail + " for immediate help."

	unavailableReply = "Our assistant is temporarily unavailable. Please try again in a few minutes, or email " +
		knowledge.SupportEmail + " and our team will get back to you."

	timeoutReply = "I'm taking longer than usual to respond. Please try again, and if the issue persists, " +
		"feel free to reach out to our support team."

	unknownReply = "Oops! Something went wrong on my end. Please try again, or contact our support team at " +
		knowledge.SupportEmail + " if you need immediate assistance."
)

var fallbackReplies = map[ai.FailureKind]string{
	ai.FailureRateLimited:  rateLimitedReply,
	ai.FailureUnauthorized: unauthorizedReply,
	ai.FailureUnavailable:  unavailableReply,
	ai.FailureTimeout:      timeoutReply,
	ai.FailureUnknown:      unknownReply,
}

// FallbackReply returns the fixed user-facing text for a failure kind
func FallbackReply(kind ai.FailureKind) string {
	if reply, ok := fallbackReplies[kind]; ok {
		return reply
	}
	return unknownReply
}
