package telegram

const (
	startText = "This is the storefront board.\n\n" +
		"Browse the services, read the F.A.Q, contact support or leave a review.\n\n" +
		"Choose an option below:"
	faqText = "❓ Frequently asked questions:\n\n" +
		"How do I place an order?\n➡️ Choose a service, then press Order.\n\n" +
		"How do I contact support?\n➡️ Press Support and write to %s.\n"
	supportText     = "Support:\n\nIf you have a problem or a question, write to %s\n"
	reviewsText     = "Read all reviews and leave yours in our Telegram chat:"
	chooseService   = "Choose a service:"
	serviceNotFound = "Service not found."
	unknownCallback = "Unknown command."

	askEmailText      = "Enter your e-mail address:"
	emailRejectedText = "❌ Enter a valid e-mail address (example: user@gmail.com):"
	codeSentText      = "✅ A confirmation code was sent to your e-mail!\nEnter the code:"
	deliveryFailText  = "❌ Could not send the confirmation e-mail.\nIf it still arrives, enter the code. Otherwise restart with /setemail."
	verifiedText      = "✅ Verification complete! Now choose a service:"
	codeRejectedText  = "❌ Wrong code, try again with /setemail"
	cancelledText     = "Operation cancelled ❌"

	notVerifiedText  = "✍️ To complete the order, verify your e-mail first.\n\n📧 Enter your e-mail: /setemail"
	orderPlacedText  = "Thank you! Your order is accepted:\n%s — %s\nWrite to support %s to pay and receive it."
	noOrdersText     = "You have no orders yet."
	ordersHeaderText = "Your orders:\n"

	fallbackText       = "Press /start to open the menu"
	unknownCommandText = "Use the buttons only!"
	tryLaterText       = "⚠️ Something went wrong, please try again later."

	newOrderText = "📩 New order!\n\n" +
		"👤 User: %s\n" +
		"🆔 ChatID: %d\n" +
		"📧 Email: %s\n" +
		"🛒 Service: %s — %s\n" +
		"🧾 Order: %s"
)

const (
	cbServices = "services"
	cbService  = "service_"
	cbOrder    = "order_"
	cbFAQ      = "faq"
	cbSupport  = "support"
	cbReviews  = "reviews"
	cbBack     = "back"
)

const (
	labelBack     = "⬅️ Back"
	labelBackMenu = "⬅️ Back to menu"
	labelOrder    = "Order"
)
