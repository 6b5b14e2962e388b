// Package kerberos implements the Kerberos directory realm: a username and
// password are verified with an AS exchange against the KDCs named in
// krb5.conf.
//
// A password login alone can be satisfied by a spoofed KDC. When a keytab
// and service principal are configured the realm additionally requests a
// service ticket for that principal and decrypts it with the keytab, which
// only the genuine KDC can produce. The keytab is polled for changes and
// swapped in place so key rotation needs no restart.
package kerberos
