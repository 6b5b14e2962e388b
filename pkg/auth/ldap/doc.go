// Package ldap implements the LDAP directory realm.
//
// Two lookup strategies are supported:
//
//   - direct bind: the user DN is built from UserDNTemplate and bound with
//     the presented password
//   - search then bind: a service account (or anonymous) searches BaseDN
//     with UserFilter, and the single matching entry is bound
//
// Roles are read from RoleAttribute (memberOf by default). DN-valued
// attributes are reduced to the value of their first RDN, so
// "cn=admins,ou=groups,dc=example,dc=org" yields the role "admins".
package ldap
