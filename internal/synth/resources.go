package synth

import (
	"fmt"
	"strings"

	"github.com/imamik/mskstack/internal/config"
	"github.com/imamik/mskstack/pkg/cfn"
	"github.com/imamik/mskstack/pkg/iam"
	"github.com/imamik/mskstack/pkg/msk"
)

func synthesizeTopics(ctx *Context) error {
	for _, t := range ctx.Config.Topics {
		id := cfn.NameID("Topic", t.Name)
		r, err := ctx.State.Cluster.SetTopic(id, t.Auth, t.MskTopic(), msk.TopicOptions{
			RemovalPolicy:  t.RemovalPolicy,
			WaitForLeaders: t.WaitForLeaders,
			Timeout:        t.Timeout,
		})
		if err != nil {
			return fmt.Errorf("topic %s: %w", t.Name, err)
		}
		ctx.State.Topics = append(ctx.State.Topics, r.LogicalID())
		LogResourceDeclared(ctx.Observer, "topics", msk.ResourceTypeTopic, r.LogicalID())
	}
	return nil
}

func synthesizeACLs(ctx *Context) error {
	ids := aclIDs(ctx.Config.ACLs)
	for i, a := range ctx.Config.ACLs {
		id := ids[i]
		r, err := ctx.State.Cluster.SetACL(cfn.LogicalID(id), a.Auth, a.Acl, a.RemovalPolicy)
		if err != nil {
			return fmt.Errorf("acl %s: %w", id, err)
		}
		ctx.State.ACLs = append(ctx.State.ACLs, r.LogicalID())
		LogResourceDeclared(ctx.Observer, "acls", msk.ResourceTypeACL, r.LogicalID())
	}
	return nil
}

// aclIDs returns the ID of each ACL entry. Unnamed entries are numbered
// Acl<n> by position, skipping numbers taken by explicit IDs.
func aclIDs(acls []config.ACLConfig) []string {
	taken := make(map[string]bool, len(acls))
	for _, a := range acls {
		if a.ID != "" {
			taken[a.ID] = true
		}
	}
	ids := make([]string, len(acls))
	n := 0
	for i, a := range acls {
		if a.ID != "" {
			ids[i] = a.ID
			continue
		}
		n = max(n+1, i+1)
		for taken[fmt.Sprintf("Acl%d", n)] {
			n++
		}
		ids[i] = fmt.Sprintf("Acl%d", n)
		taken[ids[i]] = true
	}
	return ids
}

func synthesizeGrants(ctx *Context) error {
	for _, g := range ctx.Config.Grants {
		principal, name, err := grantPrincipal(ctx, g)
		if err != nil {
			return err
		}
		id := g.ID
		if id == "" {
			id = grantID(g, name)
		}
		opts := msk.GrantOptions{Host: g.Host, RemovalPolicy: g.RemovalPolicy}

		var rs []*cfn.Resource
		switch g.Access {
		case config.AccessProduce:
			rs, err = ctx.State.Cluster.GrantProduce(id, g.Topic, g.Auth, principal, opts)
		case config.AccessConsume:
			rs, err = ctx.State.Cluster.GrantConsume(id, g.Topic, g.Auth, principal, opts)
		default:
			err = fmt.Errorf("unknown access %q", g.Access)
		}
		if err != nil {
			return fmt.Errorf("grant %s: %w", id, err)
		}

		ctx.State.Grants = append(ctx.State.Grants, id)
		for _, r := range rs {
			LogResourceDeclared(ctx.Observer, "grants", msk.ResourceTypeACL, r.LogicalID())
		}
		if principal.Grantee != nil {
			ctx.Observer.Printf("[grants] %s %s on %s granted through IAM", name, g.Access, g.Topic)
		}
	}
	return nil
}

// grantID derives the ID of an unnamed grant. The readable part is lossy,
// so a hash of the topic, access and full principal keeps grants whose
// names only differ in case, punctuation or the rest of a DN apart.
func grantID(g config.GrantConfig, name string) string {
	key := g.DistinguishedName
	if g.Auth != msk.AuthenticationMTLS {
		key = g.RoleName
		if g.RoleArn != "" {
			key = g.RoleArn
		}
	}
	return cfn.LogicalID(g.Topic, string(g.Access), name, cfn.Hash(g.Topic, string(g.Access), key))
}

// grantPrincipal resolves the principal of a grant and a short name for it.
func grantPrincipal(ctx *Context, g config.GrantConfig) (msk.Principal, string, error) {
	if g.Auth == msk.AuthenticationMTLS {
		return msk.Principal{DistinguishedName: g.DistinguishedName}, commonName(g.DistinguishedName), nil
	}

	key, name := g.RoleName, g.RoleName
	if g.RoleArn != "" {
		key = g.RoleArn
		name = g.RoleArn[strings.LastIndex(g.RoleArn, "/")+1:]
	}
	if grantee, ok := ctx.State.Grantees[key]; ok {
		return msk.Principal{Grantee: grantee}, name, nil
	}

	id := cfn.LogicalID(name, "Role")
	if key != name || !cfn.IsPlainName(name) {
		id = cfn.LogicalID(name, cfn.Hash(key), "Role")
	}
	var (
		role *iam.ImportedRole
		err  error
	)
	if g.RoleArn != "" {
		role, err = iam.RoleFromArn(ctx.Stack, id, g.RoleArn)
	} else {
		role, err = iam.RoleFromName(ctx.Stack, id, g.RoleName)
	}
	if err != nil {
		return msk.Principal{}, "", fmt.Errorf("grant on %s: %w", g.Topic, err)
	}
	ctx.State.Grantees[key] = role
	return msk.Principal{Grantee: role}, name, nil
}

// commonName returns the CN of a distinguished name, or the whole name
// when it has none.
func commonName(dn string) string {
	for _, rdn := range strings.Split(dn, ",") {
		if v, ok := strings.CutPrefix(strings.TrimSpace(rdn), "CN="); ok {
			return v
		}
	}
	return dn
}

func synthesizePolicies(ctx *Context) error {
	for _, p := range ctx.Config.ClusterPolicies {
		doc := iam.NewPolicyDocument()
		for _, s := range p.Statements {
			// Statements without resources apply to the cluster itself.
			if len(s.Resource) == 0 {
				s.Resource = []any{ctx.State.Cluster.ClusterArn()}
			}
			doc.AddStatements(s)
		}
		r, err := ctx.State.Cluster.AddClusterPolicy(cfn.LogicalID(p.ID, "ClusterPolicy"), doc)
		if err != nil {
			return fmt.Errorf("policy %s: %w", p.ID, err)
		}
		ctx.State.Policies = append(ctx.State.Policies, r.LogicalID())
		LogResourceDeclared(ctx.Observer, "policies", "AWS::MSK::ClusterPolicy", r.LogicalID())
	}
	return nil
}
