// Package firebase backs lobby.IdentityProvider with Firebase Authentication.
//
// Email registrations create password users through the Admin SDK. Popup
// sign ins are completed server side by a social.PopupFlow and the
// resulting profile is linked to a Firebase user.
package firebase
