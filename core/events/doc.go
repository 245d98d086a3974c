// Package events defines the typed conversation event contract.
//
// Events arrive as tagged JSON records on either the event channel or,
// wrapped in an agui_event envelope, on the voice channel. [Decode] turns a
// raw record into a typed event; the event reducer consumes typed events
// only and never sees the wire form.
//
// Event kinds are grouped by concern:
//
// run lifecycle
//
//   - RunStarted (RUN_STARTED): an agent run began.
//   - RunFinished (RUN_FINISHED): the run completed.
//   - RunError (RUN_ERROR): the run terminated with an error message.
//   - ActivityStart (ACTIVITY_START): free-text progress status began.
//   - ActivityEnd (ACTIVITY_END): progress status cleared.
//
// streamed text
//
//   - TextMessageStart (TEXT_MESSAGE_START): a new streaming message opened.
//   - TextMessageContent (TEXT_MESSAGE_CONTENT): append-only text delta.
//   - TextMessageEnd (TEXT_MESSAGE_END): the streaming message finalized.
//
// structured snapshots (replace, never append)
//
//   - CartData (CART_DATA): current cart contents.
//   - MenuData (MENU_DATA): restaurant menu.
//   - SearchResults (SEARCH_RESULTS): search outcome for a query.
//   - OrderData (ORDER_DATA): order status snapshot.
//
// payments
//
//   - PaymentLink (PAYMENT_LINK): checkout link for the current order.
//   - PaymentSuccess (PAYMENT_SUCCESS): payment confirmation.
//   - ReceiptLink (RECEIPT_LINK): receipt document link.
//
// interaction
//
//   - QuickReplies (QUICK_REPLIES): tappable option set, ephemeral.
//   - FormRequest (FORM_REQUEST): request to render an input form.
//   - FormDismiss (FORM_DISMISS): removal of one or more rendered forms.
//
// client-local (never on the wire)
//
//   - UserMessage: text the local user submitted or spoke.
//   - QuickRepliesCleared: stale option sets purged before new user input.
package events
