package dialog

const (
	promptRecordingNotice = "Notice: This call may be recorded for quality and training purposes."
	promptMenu            = "You can say appointments, hours, pricing, or leave a message."
	promptAIOpen          = "How can I help you today?"
	unknownBusinessName   = "this business"

	promptUnlinked    = "Thanks. This number is not yet linked to an account. Please call back later."
	promptUnavailable = "Sorry, we are having trouble taking your call right now. Please call back later. Goodbye."
	promptForcedEnd   = "I'm sorry, we were not able to finish your request on this call. Please call back and we will be glad to help. Goodbye."

	promptSilenceRetry   = "I did not catch that."
	promptSilenceGoodbye = "I still did not catch that. Goodbye."
	promptRestart        = "Thanks. Let me restart. Please tell me how I can help."

	promptHoursLocation  = "What city or location are you asking about?"
	promptPricingDetails = "Which service are you asking about, and what is the size of your request?"
	promptApptDateTime   = "Sure. What day and time would you like the appointment? After that I'll just need your name and a callback number."
	promptApptName       = "Got it. Please tell me your name."
	promptApptPhone      = "Thanks. Finally, please confirm the best phone number for a callback."
	promptApptConfirm    = "Perfect. I have your appointment request and contact details. The team will confirm shortly. Goodbye."

	leadGeneral = "Thanks. I can help best by taking a message."
	leadMessage = "Of course."
	leadHours   = "Thanks. The team will confirm the hours for that location."
	leadPricing = "Thanks. The team will follow up with accurate pricing."
	leadName    = "Thanks."
	leadPhone   = "Great."
	leadTime    = "Thanks."

	questionName  = "Please tell me your name."
	questionPhone = "Please confirm the best phone number for a callback."
	questionTime  = "What is the best time for us to call you back?"
	questionBody  = "Now, please say your message."

	promptMessageConfirm = "Thank you. Your message has been recorded and someone will follow up shortly. Goodbye."

	// promptAIFallback must not contain a closing marker; the call continues.
	promptAIFallback = "Thanks for your question. I can take a message so the team can follow up with you. What would you like me to pass along?"
)
